// Package adminpb holds the wire messages for the administrative gRPC
// surface (grainfsm/adminsvc): read-only introspection over a
// registry's versions, compatibility results, migration paths, and
// saga status. These mirror what `protoc --go_out` would emit for the
// RPCs below, hand-authored rather than generated (this environment
// never invokes protoc) and carried over the wire by adminpb's own
// grpc codec (see codec.go) rather than full descriptor-based
// protobuf reflection.
//
//	service AdminService {
//	  rpc GetAvailableVersions(GetAvailableVersionsRequest) returns (GetAvailableVersionsResponse);
//	  rpc CheckCompatibility(CheckCompatibilityRequest) returns (CheckCompatibilityResponse);
//	  rpc GetMigrationPath(GetMigrationPathRequest) returns (GetMigrationPathResponse);
//	  rpc GetSagaStatus(GetSagaStatusRequest) returns (GetSagaStatusResponse);
//	}
package adminpb

// Version mirrors fsmtype.Version on the wire.
type Version struct {
	Major      uint64 `json:"major"`
	Minor      uint64 `json:"minor"`
	Patch      uint64 `json:"patch"`
	PreRelease string `json:"preRelease,omitempty"`
}

// GetAvailableVersionsRequest asks for every registered version of an
// entity type.
type GetAvailableVersionsRequest struct {
	EntityType string `json:"entityType"`
}

// GetAvailableVersionsResponse lists versions, newest first.
type GetAvailableVersionsResponse struct {
	Versions []Version `json:"versions"`
}

// CheckCompatibilityRequest asks whether From can upgrade to To.
type CheckCompatibilityRequest struct {
	EntityType string  `json:"entityType"`
	From       Version `json:"from"`
	To         Version `json:"to"`
}

// CheckCompatibilityResponse reports the compatibility level and any
// breaking-change reasons found.
type CheckCompatibilityResponse struct {
	Level                 string   `json:"level"`
	Compatible            bool     `json:"compatible"`
	BreakingChangeReasons []string `json:"breakingChangeReasons,omitempty"`
}

// GetMigrationPathRequest asks for the hop sequence from From to To.
type GetMigrationPathRequest struct {
	EntityType string  `json:"entityType"`
	From       Version `json:"from"`
	To         Version `json:"to"`
}

// GetMigrationPathResponse is the resolved path, or Found=false if none
// exists within the bounded search.
type GetMigrationPathResponse struct {
	Found               bool     `json:"found"`
	StepNames           []string `json:"stepNames"`
	EstimatedDurationMs int64    `json:"estimatedDurationMs"`
}

// GetSagaStatusRequest asks for one saga instance's current status.
type GetSagaStatusRequest struct {
	SagaID string `json:"sagaId"`
}

// GetSagaStatusResponse reports a saga's current status and step
// history.
type GetSagaStatusResponse struct {
	SagaID       string        `json:"sagaId"`
	BusinessTxID string        `json:"businessTxId"`
	Status       string        `json:"status"`
	CurrentIndex int           `json:"currentIndex"`
	History      []StepHistory `json:"history"`
}

// StepHistory mirrors saga.Execution on the wire.
type StepHistory struct {
	StepName string `json:"stepName"`
	Attempt  int    `json:"attempt"`
	Result   string `json:"result"`
	Error    string `json:"error,omitempty"`
}
