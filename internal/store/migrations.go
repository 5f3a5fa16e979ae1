package store

// migration represents a single schema migration.
type migration struct {
	Version int
	Name    string
	SQL     string
}

// migrations is the ordered list of all schema migrations.
var migrations = []migration{
	{
		Version: 1,
		Name:    "create call logs and routing events",
		SQL: `
			CREATE TABLE call_logs (
				call_sid                TEXT PRIMARY KEY,
				business_id             TEXT NOT NULL DEFAULT '',
				from_number             TEXT NOT NULL DEFAULT '',
				to_number               TEXT NOT NULL DEFAULT '',
				mode                    TEXT NOT NULL DEFAULT '',
				status                  TEXT NOT NULL DEFAULT '',
				consent_given           INTEGER NOT NULL DEFAULT 0,
				recording_url           TEXT NOT NULL DEFAULT '',
				duration_sec            INTEGER NOT NULL DEFAULT 0,
				transcript              TEXT NOT NULL DEFAULT '',
				emotional_context       TEXT,
				final_emotional_context TEXT,
				conversation_summary    TEXT NOT NULL DEFAULT '',
				created_at              TEXT NOT NULL,
				updated_at              TEXT NOT NULL
			);

			CREATE INDEX idx_call_logs_business ON call_logs (business_id, created_at);

			CREATE TABLE routing_events (
				id            INTEGER PRIMARY KEY AUTOINCREMENT,
				call_sid      TEXT NOT NULL,
				business_id   TEXT NOT NULL DEFAULT '',
				from_number   TEXT NOT NULL DEFAULT '',
				to_number     TEXT NOT NULL DEFAULT '',
				mode          TEXT NOT NULL,
				status        TEXT NOT NULL,
				consent_given INTEGER NOT NULL DEFAULT 0,
				created_at    TEXT NOT NULL
			);

			CREATE INDEX idx_routing_events_call ON routing_events (call_sid, id);
		`,
	},
	{
		Version: 2,
		Name:    "create escalations",
		SQL: `
			CREATE TABLE escalations (
				id                 TEXT PRIMARY KEY,
				business_id        TEXT NOT NULL DEFAULT '',
				call_sid           TEXT NOT NULL,
				type               TEXT NOT NULL,
				severity           TEXT NOT NULL,
				category           TEXT NOT NULL DEFAULT '',
				trigger_reason     TEXT NOT NULL,
				transcript_snippet TEXT NOT NULL DEFAULT '',
				analysis           TEXT NOT NULL,
				created_at         TEXT NOT NULL
			);

			CREATE INDEX idx_escalations_call ON escalations (call_sid, created_at);
			CREATE INDEX idx_escalations_created ON escalations (created_at);
		`,
	},
	{
		Version: 3,
		Name:    "create businesses",
		SQL: `
			CREATE TABLE businesses (
				id             TEXT PRIMARY KEY,
				name           TEXT NOT NULL,
				sales_number   TEXT NOT NULL DEFAULT '',
				support_number TEXT NOT NULL DEFAULT '',
				human_number   TEXT NOT NULL DEFAULT '',
				profile        TEXT NOT NULL,
				updated_at     TEXT NOT NULL
			);
		`,
	},
}
