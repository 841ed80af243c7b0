package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflow_drafts (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				category VARCHAR(255) NOT NULL DEFAULT '',
				steps JSONB NOT NULL DEFAULT '[]',
				connections JSONB NOT NULL DEFAULT '[]',
				triggers JSONB NOT NULL DEFAULT '[]',
				variables JSONB NOT NULL DEFAULT '[]',
				version INTEGER NOT NULL DEFAULT 1,
				status VARCHAR(50) NOT NULL CHECK (status IN ('draft', 'active', 'archived')),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_drafts_status ON workflow_drafts(status);
			CREATE INDEX idx_workflow_drafts_created_at ON workflow_drafts(created_at);
			CREATE INDEX idx_workflow_drafts_updated_at ON workflow_drafts(updated_at);
			CREATE INDEX idx_workflow_drafts_name ON workflow_drafts(name);
		`,
	}
}
