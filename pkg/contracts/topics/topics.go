package topics

const (
	// Odds
	OddsSnapshots = "odds_snapshots"

	// Redis Pub/Sub
	SnapshotBroadcast = "odds_snapshots_broadcast"
)
