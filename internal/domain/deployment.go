package domain

// DeploymentStatus tracks the outcome of a deployment run.
type DeploymentStatus string

const (
	DeploymentRunning   DeploymentStatus = "RUNNING"
	DeploymentSucceeded DeploymentStatus = "SUCCEEDED"
	DeploymentFailed    DeploymentStatus = "FAILED"
)

// DeploymentStep is one executed step of a deployment run.
type DeploymentStep struct {
	Name       string // e.g. "create-account", "deploy", "init"
	Command    string // rendered command line
	Output     string // combined stdout/stderr, truncated
	Status     string // "ok" | "failed" | "skipped"
	StartedAt  int64  // Unix timestamp in milliseconds
	DurationMs int64  //
}

// DeploymentRecord is a persisted deployment run of the token contract.
// Corresponds to the deployments table in PostgreSQL.
type DeploymentRecord struct {
	DeploymentID string           // PRIMARY KEY, deterministic hash
	Network      string           // "testnet" | "mainnet"
	TokenAccount string           // contract account id
	OwnerAccount string           // owner_id passed to init
	TotalSupply  string           // u128 base-10 string
	WasmSHA256   string           // hex hash of the deployed binary
	Steps        []DeploymentStep // executed steps in order
	Status       DeploymentStatus //
	StartedAt    int64            // Unix timestamp in milliseconds
	FinishedAt   int64            // zero while running
	CreatedAt    int64            // record creation timestamp (ms)
}
