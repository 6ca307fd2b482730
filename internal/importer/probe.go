package importer

import (
	"fmt"

	"github.com/floostack/transcoder"
	"github.com/floostack/transcoder/ffmpeg"
)

// ProbeArtifact extracts container/stream metadata from the file at the
// path provided using ffprobe. Used for post-persist diagnostics only;
// failures here never affect the import outcome.
func ProbeArtifact(path string) (transcoder.Metadata, error) {
	cfg := ffmpeg.Config{}
	probe := ffmpeg.New(&cfg).Input(path)
	metadata, err := probe.GetMetadata()
	if err != nil {
		return nil, fmt.Errorf("failed to extract file metadata using ffprobe: %w", err)
	}

	return metadata, nil
}
