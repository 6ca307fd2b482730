package importer

import (
	"context"
)

// Acquirer fetches the media behind a URL in to the workspace directory
// provided. Implementations are injected in to the import service so
// tests can substitute fakes; the real implementation shells out to an
// external bulk media downloader.
type Acquirer interface {
	Acquire(ctx context.Context, url string, workspace string) error
}

// downloaderAcquirer invokes an external bulk media downloader binary,
// instructing it to write everything it finds in to the workspace.
type downloaderAcquirer struct {
	bin    string
	runner CommandRunner
}

func NewDownloaderAcquirer(bin string, runner CommandRunner) Acquirer {
	return &downloaderAcquirer{bin: bin, runner: runner}
}

func (acquirer *downloaderAcquirer) Acquire(ctx context.Context, url string, workspace string) error {
	return acquirer.runner.Run(ctx, acquirer.bin, "--directory", workspace, url)
}
