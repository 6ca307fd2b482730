package importer

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

// scriptedRunner records every invocation and, when the invocation
// index matches succeedOn (1-based), reports success. createOutput
// controls whether the successful invocation actually produces the
// output file (the last argument of every conversion command).
type scriptedRunner struct {
	invocations  [][]string
	succeedOn    int
	createOutput bool
}

func (runner *scriptedRunner) Run(_ context.Context, name string, args ...string) error {
	runner.invocations = append(runner.invocations, append([]string{name}, args...))
	if len(runner.invocations) == runner.succeedOn {
		if runner.createOutput {
			output := args[len(args)-1]
			if err := os.WriteFile(output, []byte("converted"), 0644); err != nil {
				return err
			}
		}

		return nil
	}

	return errors.New("tool exploded")
}

func conversionTestConfig() Config {
	return Config{
		FfmpegBin:        "ffmpeg",
		MagickBin:        "magick",
		LegacyConvertBin: "convert",
	}
}

func writeInput(t *testing.T, name string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	assert.Nil(t, os.WriteFile(path, []byte("input"), 0644))
	return path
}

func Test_Convert_WebpIsPassthrough(t *testing.T) {
	t.Parallel()
	runner := &scriptedRunner{}
	converter := NewChainConverter(conversionTestConfig(), runner)

	input := writeInput(t, "already.webp")
	output, err := converter.Convert(context.Background(), input)

	assert.Nil(t, err)
	assert.Equal(t, input, output)
	assert.Empty(t, runner.invocations)
}

func Test_Convert_Mp4StrategyOrder(t *testing.T) {
	t.Parallel()
	runner := &scriptedRunner{succeedOn: 3, createOutput: true}
	converter := NewChainConverter(conversionTestConfig(), runner)

	input := writeInput(t, "clip.mp4")
	output, err := converter.Convert(context.Background(), input)

	assert.Nil(t, err)
	assert.Equal(t, ".webp", filepath.Ext(output))
	assert.FileExists(t, output)

	// ffmpeg first, then magick, then legacy convert.
	assert.Len(t, runner.invocations, 3)
	assert.Equal(t, "ffmpeg", runner.invocations[0][0])
	assert.Equal(t, "magick", runner.invocations[1][0])
	assert.Equal(t, "convert", runner.invocations[2][0])
}

func Test_Convert_Mp4FallsBackToGif(t *testing.T) {
	t.Parallel()
	runner := &scriptedRunner{succeedOn: 4, createOutput: true}
	converter := NewChainConverter(conversionTestConfig(), runner)

	input := writeInput(t, "clip.mp4")
	output, err := converter.Convert(context.Background(), input)

	assert.Nil(t, err)
	assert.Equal(t, ".gif", filepath.Ext(output))
	assert.Len(t, runner.invocations, 4)
	assert.Equal(t, "ffmpeg", runner.invocations[3][0])
}

func Test_Convert_Mp4AllStrategiesFail(t *testing.T) {
	t.Parallel()
	runner := &scriptedRunner{}
	converter := NewChainConverter(conversionTestConfig(), runner)

	input := writeInput(t, "clip.mp4")
	output, err := converter.Convert(context.Background(), input)

	assert.ErrorIs(t, err, ErrNoValidMediaFound)
	assert.Zero(t, output)
	assert.Len(t, runner.invocations, 4)
}

func Test_Convert_GifKeepsOriginalOnFailure(t *testing.T) {
	t.Parallel()
	runner := &scriptedRunner{}
	converter := NewChainConverter(conversionTestConfig(), runner)

	input := writeInput(t, "anim.gif")
	output, err := converter.Convert(context.Background(), input)

	assert.Nil(t, err)
	assert.Equal(t, input, output)
	assert.Len(t, runner.invocations, 2)
	assert.Equal(t, "magick", runner.invocations[0][0])
	assert.Equal(t, "convert", runner.invocations[1][0])
}

func Test_Convert_GifConvertsToWebp(t *testing.T) {
	t.Parallel()
	runner := &scriptedRunner{succeedOn: 1, createOutput: true}
	converter := NewChainConverter(conversionTestConfig(), runner)

	input := writeInput(t, "anim.gif")
	output, err := converter.Convert(context.Background(), input)

	assert.Nil(t, err)
	assert.Equal(t, ".webp", filepath.Ext(output))
	assert.Len(t, runner.invocations, 1)
}

func Test_Convert_ZeroExitWithoutOutputIsAFailure(t *testing.T) {
	t.Parallel()
	runner := &scriptedRunner{succeedOn: 1, createOutput: false}
	converter := NewChainConverter(conversionTestConfig(), runner)

	input := writeInput(t, "anim.gif")
	output, err := converter.Convert(context.Background(), input)

	// Both strategies "fail" (the first silently); the original is kept.
	assert.Nil(t, err)
	assert.Equal(t, input, output)
	assert.Len(t, runner.invocations, 2)
}
