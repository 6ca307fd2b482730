package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/sratabix/gifselector/pkg/logger"
)

// Converter normalizes an acquired media file in to a supported
// still/animated image format, returning the path of the final
// artifact (which may be the input itself for pass-through formats).
//
// Conversion is best-effort for images: a .gif that cannot be converted
// is returned unmodified. Videos MUST convert; a .mp4 for which every
// strategy fails is dropped with ErrNoValidMediaFound.
type Converter interface {
	Convert(ctx context.Context, input string) (string, error)
}

// conversionStrategy is one fallible attempt in an ordered chain
// sharing a common signature. Strategies are tried in order,
// short-circuiting on the first verified success.
type conversionStrategy struct {
	label     string
	outputExt string
	invoke    func(ctx context.Context, input string, output string) error
}

type chainConverter struct {
	runner           CommandRunner
	ffmpegBin        string
	magickBin        string
	legacyConvertBin string
}

func NewChainConverter(config Config, runner CommandRunner) Converter {
	return &chainConverter{
		runner:           runner,
		ffmpegBin:        config.FfmpegBin,
		magickBin:        config.MagickBin,
		legacyConvertBin: config.LegacyConvertBin,
	}
}

func (converter *chainConverter) Convert(ctx context.Context, input string) (string, error) {
	ext := strings.ToLower(filepath.Ext(input))
	if ext == ".webp" {
		return input, nil
	}

	failures := make([]string, 0)
	for _, strategy := range converter.strategiesFor(ext) {
		output := conversionOutputPath(input, strategy.outputExt)

		err := strategy.invoke(ctx, input, output)
		if err == nil {
			// The tools involved can exit zero without producing
			// anything useful; trust only the output file.
			if _, statErr := os.Stat(output); statErr == nil {
				log.Emit(logger.SUCCESS, "Converted %s via %s\n", filepath.Base(input), strategy.label)
				return output, nil
			}

			err = fmt.Errorf("tool reported success but output %s missing", output)
		}

		failures = append(failures, fmt.Sprintf("%s: %v", strategy.label, err))
		log.Emit(logger.WARNING, "Conversion strategy %s failed for %s: %v\n", strategy.label, filepath.Base(input), err)
	}

	if ext == ".gif" {
		// Conversion of images is best-effort; keep the original.
		log.Emit(logger.INFO, "Keeping original %s; conversion attempts failed (%s)\n", filepath.Base(input), strings.Join(failures, "; "))
		return input, nil
	}

	return "", fmt.Errorf("%w: all conversion strategies failed (%s)", ErrNoValidMediaFound, strings.Join(failures, "; "))
}

// strategiesFor returns the ordered strategy chain for the input
// extension provided.
func (converter *chainConverter) strategiesFor(ext string) []conversionStrategy {
	ffmpegToWebp := conversionStrategy{
		label:     "ffmpeg-webp",
		outputExt: ".webp",
		invoke: func(ctx context.Context, input, output string) error {
			return converter.runner.Run(ctx, converter.ffmpegBin, "-y", "-i", input, "-loop", "0", "-q:v", "75", "-an", output)
		},
	}
	magickToWebp := conversionStrategy{
		label:     "magick-webp",
		outputExt: ".webp",
		invoke: func(ctx context.Context, input, output string) error {
			return converter.runner.Run(ctx, converter.magickBin, input, "-coalesce", "-quality", "80", output)
		},
	}
	legacyToWebp := conversionStrategy{
		label:     "convert-webp",
		outputExt: ".webp",
		invoke: func(ctx context.Context, input, output string) error {
			return converter.runner.Run(ctx, converter.legacyConvertBin, input, "-coalesce", "-quality", "80", output)
		},
	}
	ffmpegToGif := conversionStrategy{
		label:     "ffmpeg-gif",
		outputExt: ".gif",
		invoke: func(ctx context.Context, input, output string) error {
			return converter.runner.Run(ctx, converter.ffmpegBin, "-y", "-i", input, output)
		},
	}

	switch ext {
	case ".mp4":
		return []conversionStrategy{ffmpegToWebp, magickToWebp, legacyToWebp, ffmpegToGif}
	case ".gif":
		return []conversionStrategy{magickToWebp, legacyToWebp}
	default:
		return nil
	}
}

func conversionOutputPath(input string, outputExt string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	return filepath.Join(filepath.Dir(input), base+"-converted"+outputExt)
}
