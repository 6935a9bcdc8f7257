// Package dynamics records per-epoch model outputs and merges them back into
// per-instance histories.
//
// A training or evaluation loop calls Writer.Log once per batch (or once per
// epoch) with the instance identifiers, the raw score vectors and the gold
// labels. Records land in one JSONL file per epoch:
//
//	<output_dir>/training_dynamics/dynamics_epoch_<N>.jsonl
//	<output_dir>/eval_dynamics/dynamics_epoch_<N>.jsonl
//
// Each line is one record:
//
//	{"guid":17,"logits_epoch_3":[0.12,0.88],"gold":1}
//
// A second write for the same epoch keeps every existing line and appends the
// new ones after it. The rewrite goes through a temporary file and a rename,
// and writers targeting the same path inside one process are serialized.
// Nothing coordinates separate processes.
//
// Reader.Read walks epochs 0..N-1 of a dynamics directory and returns a
// History mapping each identifier to its gold label and the ordered score
// vectors. An instance must first appear in epoch 0; anything else is
// reported as an *Error with code ErrCodeFirstSeenLate.
//
// Loggers are injected by the caller. The package never touches the default
// slog logger.
package dynamics
