package domain

// UploadResult is the outcome of submitting one file.
type UploadResult struct {
	// Filename is the submitted file's name.
	Filename string

	// Record is the placeholder inserted after a successful upload.
	Record *DocumentRecord

	// Err is the validation, network or server error, if any.
	Err error
}

// UploadReport collects per-file results in submission order.
type UploadReport struct {
	Results []UploadResult
}

// Uploaded returns the placeholder records of successful uploads.
func (r *UploadReport) Uploaded() []DocumentRecord {
	var out []DocumentRecord
	for _, res := range r.Results {
		if res.Err == nil && res.Record != nil {
			out = append(out, *res.Record)
		}
	}
	return out
}

// Failed returns the results that carry an error.
func (r *UploadReport) Failed() []UploadResult {
	var out []UploadResult
	for _, res := range r.Results {
		if res.Err != nil {
			out = append(out, res)
		}
	}
	return out
}

// PollOutcome describes how a poll for one document ended.
type PollOutcome struct {
	DocumentID string

	// Attempts counts analysis fetches; Retries counts the waits between them.
	Attempts int
	Retries  int

	// Skipped is set when another poll already owned the document.
	Skipped bool

	// Discarded is set when the analysis arrived after the document was removed.
	Discarded bool

	// Result is the fetched analysis on success.
	Result *AnalysisResult

	// Err is why the poll ended without a result.
	Err error
}

// Succeeded reports whether the poll produced an analysis.
func (o PollOutcome) Succeeded() bool {
	return o.Err == nil && o.Result != nil && !o.Discarded
}
