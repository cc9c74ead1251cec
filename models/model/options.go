package model

// Backend selects how a model is run.
type Backend string

const (
	// BackendONNX runs an exported graph in-process through ONNX Runtime.
	BackendONNX Backend = "onnx"
	// BackendRemote posts batches to an inference service over HTTP.
	BackendRemote Backend = "remote"
)

// Input and output names of an exported D-FINE graph with its postprocessor.
const (
	InputImages      = "images"
	InputTargetSizes = "orig_target_sizes"
	OutputLabels     = "labels"
	OutputBoxes      = "boxes"
	OutputScores     = "scores"
)
