package deskguard

import (
	"github.com/fernandezvara/dbkit"
)

// Migrations returns the database migrations required by BunStore.
// Use db.Migrate(ctx, deskguard.Migrations()) to apply them.
func Migrations() []dbkit.Migration {
	return []dbkit.Migration{
		{
			ID:          "deskguard-001",
			Description: "Create categories table",
			SQL: `
                CREATE TABLE IF NOT EXISTS categories (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    name TEXT NOT NULL,
                    slug TEXT NOT NULL,
                    description TEXT NOT NULL DEFAULT '',
                    parent_id UUID REFERENCES categories(id) ON DELETE SET NULL,
                    article_count INTEGER NOT NULL DEFAULT 0,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    CONSTRAINT categories_name_key UNIQUE (name),
                    CONSTRAINT categories_slug_key UNIQUE (slug)
                )`,
		},
		{
			ID:          "deskguard-002",
			Description: "Create tags table",
			SQL: `
                CREATE TABLE IF NOT EXISTS tags (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    name TEXT NOT NULL,
                    slug TEXT NOT NULL,
                    article_count INTEGER NOT NULL DEFAULT 0,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    CONSTRAINT tags_name_key UNIQUE (name),
                    CONSTRAINT tags_slug_key UNIQUE (slug)
                )`,
		},
		{
			ID:          "deskguard-003",
			Description: "Create articles table",
			SQL: `
                CREATE TABLE IF NOT EXISTS articles (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    title VARCHAR(200) NOT NULL,
                    slug TEXT NOT NULL,
                    content TEXT NOT NULL,
                    excerpt VARCHAR(500),
                    status TEXT NOT NULL DEFAULT 'draft'
                        CHECK (status IN ('draft', 'published', 'archived')),
                    category_id UUID REFERENCES categories(id) ON DELETE SET NULL,
                    author_id TEXT NOT NULL,
                    view_count BIGINT NOT NULL DEFAULT 0,
                    published_at TIMESTAMPTZ,
                    created_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    updated_at TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    CONSTRAINT articles_slug_key UNIQUE (slug)
                );
                CREATE INDEX IF NOT EXISTS articles_status_idx ON articles (status);
                CREATE INDEX IF NOT EXISTS articles_category_idx ON articles (category_id);
                CREATE INDEX IF NOT EXISTS articles_author_idx ON articles (author_id)`,
		},
		{
			ID:          "deskguard-004",
			Description: "Create article_tags table",
			SQL: `
                CREATE TABLE IF NOT EXISTS article_tags (
                    article_id UUID NOT NULL REFERENCES articles(id) ON DELETE CASCADE,
                    tag_id UUID NOT NULL REFERENCES tags(id) ON DELETE CASCADE,
                    PRIMARY KEY (article_id, tag_id)
                );
                CREATE INDEX IF NOT EXISTS article_tags_tag_idx ON article_tags (tag_id)`,
		},
		{
			ID:          "deskguard-005",
			Description: "Create article_audit_log table",
			SQL: `
                CREATE TABLE IF NOT EXISTS article_audit_log (
                    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
                    timestamp TIMESTAMPTZ NOT NULL DEFAULT current_timestamp,
                    actor_id TEXT NOT NULL,
                    actor_roles TEXT[],
                    action TEXT NOT NULL,
                    article_id TEXT NOT NULL,
                    previous_status TEXT,
                    new_status TEXT,
                    ip_address TEXT,
                    user_agent TEXT,
                    request_id TEXT,
                    metadata JSONB
                );
                CREATE INDEX IF NOT EXISTS article_audit_log_article_idx ON article_audit_log (article_id, timestamp DESC)`,
		},
	}
}
