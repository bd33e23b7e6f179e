// Package deskguard is the authorization and content-lifecycle engine of a
// helpdesk knowledge base.
//
// It decides what an actor holding a set of roles may do, moves articles
// through their DRAFT, PUBLISHED and ARCHIVED states, keeps the article
// counters of categories and tags exact, and hides articles an actor is not
// allowed to see.
//
// # Core Concepts
//
// Role: one of agent, supervisor, admin and super_admin, ordered in that
// hierarchy. An actor holds a RoleSet; access is granted when the held set
// intersects the allowed set, never by comparing a single "highest" role.
//
// Route and action: the Registry maps dashboard paths and dot-separated
// action identifiers ("articles.status") to the roles allowed to use them.
// An unknown path is matched against its closest configured ancestor.
//
// Article lifecycle: new articles are drafts. Editing content requires
// SUPERVISOR+, every status change requires ADMIN+, and soft delete
// (archiving) is the one move into ARCHIVED a supervisor may make.
//
// Counters: category and tag article counts are recomputed from the
// association rows inside the same transaction as the mutation that
// changed them. They are never incremented in place.
//
// Visibility: an agent sees published articles and their own drafts. An
// article the actor may not see is reported as not found.
//
// # Basic Usage
//
//	// 1. Pick a store and a policy (at application startup)
//	db, _ := dbkit.New(dbkit.Config{URL: "postgres://..."})
//	db.Migrate(ctx, deskguard.Migrations())
//
//	policy := deskguard.NewPolicy(deskguard.DefaultRegistry())
//	views := deskguard.NewViewCounter(store, deskguard.ViewCounterConfig{}, logger)
//	svc := deskguard.NewService(deskguard.NewBunStore(db), policy,
//	    deskguard.WithLogger(logger),
//	    deskguard.WithViewCounter(views),
//	)
//	defer svc.Close(ctx)
//
//	// 2. Act on behalf of a session
//	session := deskguard.NewSession(userID, deskguard.RoleSupervisor)
//	article, err := svc.CreateArticle(ctx, session, deskguard.ArticleInput{
//	    Title:   "Resetting a password",
//	    Content: "...",
//	    TagIDs:  []string{tagID},
//	})
//
//	// 3. Publish (ADMIN+)
//	published := deskguard.StatusPublished
//	_, err = svc.UpdateArticle(ctx, adminSession, article.ID, deskguard.ArticlePatch{Status: &published})
//
// # Middleware Usage
//
//	mw := deskguard.NewMiddleware(policy, resolver)
//
//	mux.Handle("/dashboard/", mw.InjectAuditContext()(mw.RequireRoute()(dashboard)))
//	mux.Handle("POST /api/articles", mw.RequireAction(deskguard.ActionArticleCreate)(create))
//
// Errors map to HTTP statuses with HTTPStatus; WriteError renders them as JSON.
//
// # Audit Log
//
// Every article mutation is logged with:
//   - Actor and the roles held at the time
//   - Action (created, updated, transitioned, archived, deleted)
//   - Previous and new status
//   - Timestamp
//   - Request metadata (IP, user agent, request ID)
package deskguard
