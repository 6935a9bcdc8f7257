// Package harness runs dynamics scenarios described in YAML.
//
// A scenario is a sequence of epoch writes followed by one read, plus the
// expected outcome. Each run happens in a fresh temporary directory.
//
// # Scenario Format
//
//	name: two_epoch_example
//	description: "Two epochs, two instances"
//	kind: training
//	writes:
//	  - epoch: 0
//	    ids: [1, 2]
//	    logits: [[0.1, 0.9], [0.8, 0.2]]
//	    gold: [1, 0]
//	  - epoch: 1
//	    raw:
//	      - '{"guid":3,"logits_epoch_1":[0.5],"gold":0}'
//	read:
//	  strip_last: false
//	  id_field: guid
//	  burn_out: 0
//	  strict: false
//	expect:
//	  error: INSTANCE_FIRST_SEEN_LATE
//	  instances: 2
//	  history:
//	    - guid: 1
//	      gold: 1
//	      logits: [[0.1, 0.9]]
//
// A write step either goes through dynamics.Writer (ids/logits/gold) or
// replaces the epoch file with raw lines, which is how inconsistent inputs
// are built. expect.error is a dynamics.ErrorCode; when set, the read must
// fail with exactly that code.
//
// # Golden Snapshots
//
// RunWithGolden serializes the written files and the merged history and
// compares them with testdata/golden/<name>.golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
