package metrics

import "time"

const (
	// TickInterval is the fixed cadence of the simulation.
	TickInterval = 2 * time.Second
	// Retention is the maximum age of a point before eviction.
	Retention = 6 * time.Hour
)

const (
	GiB = 1024 * 1024 * 1024
	MiB = 1024 * 1024
)

// Metric names referenced outside the catalog tables.
const (
	NodeUp                  = "blockdag_node_up"
	ProcessUptime           = "blockdag_process_uptime_seconds"
	VirtualHeight           = "blockdag_virtual_height"
	FinalizedHeight         = "blockdag_finalized_height"
	TipAge                  = "blockdag_tip_age_seconds"
	Bluescore               = "blockdag_bluescore"
	FinalityLag             = "blockdag_finality_lag_blocks"
	DAGTipsCount            = "blockdag_dag_tips_count"
	DAGWidth                = "blockdag_dag_width"
	VirtualParentSwitches   = "blockdag_virtual_parent_switches_total"
	BlocksAccepted          = "blockdag_blocks_accepted_total"
	BlocksRejected          = "blockdag_blocks_rejected_total"
	OrphanBlocks            = "blockdag_orphan_blocks_total"
	StaleBlocks             = "blockdag_stale_blocks_total"
	ConflictBlocks          = "blockdag_conflict_blocks_total"
	PeersConnected          = "blockdag_peers_connected"
	PeersInbound            = "blockdag_peers_inbound"
	PeersOutbound           = "blockdag_peers_outbound"
	PeerDisconnects         = "blockdag_peer_disconnects_total"
	DialFailures            = "blockdag_dial_failures_total"
	MempoolSize             = "blockdag_mempool_size"
	MempoolBytes            = "blockdag_mempool_bytes"
	TxReceived              = "blockdag_tx_received_total"
	TxEvicted               = "blockdag_tx_evicted_total"
	TxCommitted             = "blockdag_tx_committed_total"
	TPS                     = "blockdag_tps"
	RPCRequests             = "blockdag_rpc_requests_total"
	RPCErrors               = "blockdag_rpc_errors_total"
	RPCActiveConnections    = "blockdag_rpc_active_connections"
	DBSize                  = "blockdag_db_size_bytes"
	DBCompactions           = "blockdag_db_compactions_total"
	DiskFree                = "blockdag_disk_free_bytes"
	InvalidBlocks           = "blockdag_invalid_blocks_total"
	InvalidTxs              = "blockdag_invalid_txs_total"
	BannedPeers             = "blockdag_banned_peers_total"
	RateLimitedPeers        = "blockdag_rate_limited_peers_total"
	MalformedMessages       = "blockdag_malformed_messages_total"
	MergeLatency            = "blockdag_merge_latency_seconds"
	BlockPropagationLatency = "blockdag_block_propagation_latency_seconds"
	TxPropagationLatency    = "blockdag_tx_propagation_latency_seconds"
	RPCDuration             = "blockdag_rpc_duration_seconds"
	DBReadLatency           = "blockdag_db_read_latency_seconds"
	DBWriteLatency          = "blockdag_db_write_latency_seconds"
	DBCompactionTime        = "blockdag_db_compaction_time_seconds"
	ConsensusProcessingTime = "blockdag_consensus_processing_time_seconds"
)

// GaugeSpec describes a gauge. Its nominal baseline at elapsed seconds t is
// Baseline + Growth*t.
type GaugeSpec struct {
	Name     string
	Help     string
	Seed     float64
	Baseline float64
	Growth   float64
}

// BaselineAt returns the nominal baseline after elapsed engine time.
func (g GaugeSpec) BaselineAt(elapsed time.Duration) float64 {
	return g.Baseline + g.Growth*elapsed.Seconds()
}

// CounterSpec describes a counter and its nominal increase per second.
type CounterSpec struct {
	Name string
	Help string
	Seed float64
	Rate float64
}

// HistogramSpec describes a latency histogram and its nominal quantiles.
type HistogramSpec struct {
	Name     string
	Help     string
	Baseline Quantiles
}

// Gauges is the fixed gauge catalog, in update order.
var Gauges = []GaugeSpec{
	{Name: NodeUp, Help: "Whether the node is up (1) or down (0)", Seed: 1, Baseline: 1},
	{Name: ProcessUptime, Help: "Process uptime in seconds", Seed: 0, Baseline: 0, Growth: 1},
	{Name: VirtualHeight, Help: "Height of the virtual block", Seed: 1_000_000, Baseline: 1_000_000, Growth: 0.1},
	{Name: FinalizedHeight, Help: "Height of the last finalized block", Seed: 999_950, Baseline: 999_950, Growth: 0.1},
	{Name: TipAge, Help: "Age of the newest tip in seconds", Seed: 5, Baseline: 5},
	{Name: FinalityLag, Help: "Blocks between virtual and finalized height", Seed: 50, Baseline: 50},
	{Name: DAGTipsCount, Help: "Number of DAG tips", Seed: 3, Baseline: 3},
	{Name: DAGWidth, Help: "Average DAG width", Seed: 2.5, Baseline: 2.5},
	{Name: PeersConnected, Help: "Connected peers", Seed: 12, Baseline: 12},
	{Name: PeersInbound, Help: "Inbound peers", Seed: 6, Baseline: 6},
	{Name: PeersOutbound, Help: "Outbound peers", Seed: 6, Baseline: 6},
	{Name: MempoolSize, Help: "Transactions in the mempool", Seed: 5000, Baseline: 5000},
	{Name: MempoolBytes, Help: "Mempool size in bytes", Seed: 50 * MiB, Baseline: 50 * MiB},
	{Name: TPS, Help: "Committed transactions per second", Seed: 10, Baseline: 10},
	{Name: RPCActiveConnections, Help: "Open RPC connections", Seed: 25, Baseline: 25},
	{Name: DBSize, Help: "Database size in bytes", Seed: 50 * GiB, Baseline: 50 * GiB},
	{Name: DiskFree, Help: "Free disk space in bytes", Seed: 500 * GiB, Baseline: 500 * GiB},
}

// Counters is the fixed counter catalog, in update order.
var Counters = []CounterSpec{
	{Name: Bluescore, Help: "Blue score of the virtual block", Seed: 1_000_000, Rate: 0.1},
	{Name: VirtualParentSwitches, Help: "Virtual parent switches", Seed: 0, Rate: 0.001},
	{Name: BlocksAccepted, Help: "Accepted blocks", Seed: 50000, Rate: 0.5},
	{Name: BlocksRejected, Help: "Rejected blocks", Seed: 100, Rate: 0.001},
	{Name: OrphanBlocks, Help: "Orphan blocks", Seed: 50, Rate: 0.0005},
	{Name: StaleBlocks, Help: "Stale blocks", Seed: 30, Rate: 0.0003},
	{Name: ConflictBlocks, Help: "Conflicting blocks", Seed: 20, Rate: 0.0002},
	{Name: PeerDisconnects, Help: "Peer disconnects", Seed: 5, Rate: 0.0001},
	{Name: DialFailures, Help: "Outbound dial failures", Seed: 2, Rate: 0.00005},
	{Name: TxReceived, Help: "Transactions received", Seed: 100000, Rate: 5},
	{Name: TxEvicted, Help: "Transactions evicted from the mempool", Seed: 500, Rate: 0.1},
	{Name: TxCommitted, Help: "Transactions committed", Seed: 95000, Rate: 5},
	{Name: RPCRequests, Help: "RPC requests served", Seed: 50000, Rate: 10},
	{Name: RPCErrors, Help: "RPC requests failed", Seed: 100, Rate: 0.05},
	{Name: DBCompactions, Help: "Database compactions", Seed: 10, Rate: 0.0001},
	{Name: InvalidBlocks, Help: "Invalid blocks received", Seed: 5, Rate: 0.0001},
	{Name: InvalidTxs, Help: "Invalid transactions received", Seed: 200, Rate: 0.1},
	{Name: BannedPeers, Help: "Banned peers", Seed: 1, Rate: 0.00001},
	{Name: RateLimitedPeers, Help: "Rate limited peers", Seed: 0, Rate: 0.0001},
	{Name: MalformedMessages, Help: "Malformed p2p messages", Seed: 10, Rate: 0.01},
}

// Histograms is the fixed histogram catalog, in update order.
var Histograms = []HistogramSpec{
	{Name: MergeLatency, Help: "Block merge latency", Baseline: Quantiles{P50: 0.1, P95: 0.3, P99: 0.5}},
	{Name: BlockPropagationLatency, Help: "Block propagation latency", Baseline: Quantiles{P50: 0.05, P95: 0.2, P99: 0.4}},
	{Name: TxPropagationLatency, Help: "Transaction propagation latency", Baseline: Quantiles{P50: 0.02, P95: 0.1, P99: 0.2}},
	{Name: RPCDuration, Help: "RPC request duration", Baseline: Quantiles{P50: 0.01, P95: 0.05, P99: 0.1}},
	{Name: DBReadLatency, Help: "Database read latency", Baseline: Quantiles{P50: 0.001, P95: 0.005, P99: 0.01}},
	{Name: DBWriteLatency, Help: "Database write latency", Baseline: Quantiles{P50: 0.002, P95: 0.01, P99: 0.02}},
	{Name: DBCompactionTime, Help: "Database compaction time", Baseline: Quantiles{P50: 1, P95: 5, P99: 10}},
	{Name: ConsensusProcessingTime, Help: "Consensus processing time", Baseline: Quantiles{P50: 0.05, P95: 0.15, P99: 0.3}},
}

// KindOf reports the kind of a scalar metric name.
func KindOf(name string) (Kind, bool) {
	for _, g := range Gauges {
		if g.Name == name {
			return KindGauge, true
		}
	}
	for _, c := range Counters {
		if c.Name == name {
			return KindCounter, true
		}
	}
	return "", false
}
