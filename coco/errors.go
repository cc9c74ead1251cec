package coco

// MalformedDatasetError reports a dataset document that cannot be reconstructed.
type MalformedDatasetError struct {
	Reason string
}

func (e *MalformedDatasetError) Error() string {
	return "malformed dataset: " + e.Reason
}
