package conf

// Model backends
const (
	BackendAuto   = "auto"
	BackendTFLite = "tflite"
	BackendONNX   = "onnx"
)

const osWindows = "windows"

// appDirName is the per-user and system config directory name
const appDirName = "birdsound"
