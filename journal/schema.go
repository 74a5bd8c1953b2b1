package journal

const Schema = `
CREATE TABLE IF NOT EXISTS fills (
	record_id TEXT PRIMARY KEY,
	run_id TEXT NOT NULL,
	recorded_at DATETIME NOT NULL,
	ts TEXT NOT NULL,
	symbol TEXT NOT NULL,
	side TEXT NOT NULL,
	qty INTEGER NOT NULL,
	price REAL NOT NULL,
	fees REAL NOT NULL,
	account TEXT NOT NULL,
	exec_id TEXT NOT NULL,
	note TEXT NOT NULL,
	applied INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_fills_run ON fills(run_id);
CREATE INDEX IF NOT EXISTS idx_fills_exec ON fills(exec_id);

CREATE TABLE IF NOT EXISTS blotter (
	snapshot_id TEXT NOT NULL,
	run_id TEXT NOT NULL,
	taken_at DATETIME NOT NULL,
	symbol TEXT NOT NULL,
	net_qty INTEGER NOT NULL,
	avg_price REAL NOT NULL,
	mark REAL,
	upl REAL NOT NULL,
	rpl REAL NOT NULL,
	fees REAL NOT NULL,
	nlv_delta REAL NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_blotter_run ON blotter(run_id, snapshot_id);
`
