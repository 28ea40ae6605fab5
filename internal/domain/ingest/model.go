package ingest

// BatchResult accounts for every row handed to a bulk write. Skipped rows
// already existed under their natural key, failed rows carry a reason in
// Failures. Inserted+Updated+Skipped+Failed equals the batch size.
type BatchResult struct {
	Inserted int
	Updated  int
	Skipped  int
	Failed   int
	Failures []RowFailure
}

// RowFailure identifies one row that could not be written.
type RowFailure struct {
	Key    string
	Reason string
}

// Merge folds another result into r.
func (r *BatchResult) Merge(other BatchResult) {
	r.Inserted += other.Inserted
	r.Updated += other.Updated
	r.Skipped += other.Skipped
	r.Failed += other.Failed
	r.Failures = append(r.Failures, other.Failures...)
}

// Total returns the number of rows the result accounts for.
func (r BatchResult) Total() int {
	return r.Inserted + r.Updated + r.Skipped + r.Failed
}
