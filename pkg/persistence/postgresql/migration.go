package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE sessions (
				session_id VARCHAR(255) PRIMARY KEY,
				thread_id VARCHAR(255) NOT NULL,
				agent_type VARCHAR(100) NOT NULL,
				status VARCHAR(50) NOT NULL CHECK (status IN ('active', 'interrupted', 'completed', 'error')),
				interrupt_info JSONB,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				last_updated TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_sessions_agent_type ON sessions(agent_type);
			CREATE INDEX idx_sessions_status ON sessions(status);
			CREATE INDEX idx_sessions_last_updated ON sessions(last_updated);
		`,
		2: `
			CREATE TABLE workflow_snapshots (
				thread_id VARCHAR(255) PRIMARY KEY,
				next_node VARCHAR(100) NOT NULL,
				state JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_snapshots_updated_at ON workflow_snapshots(updated_at);
		`,
	}
}
