package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"pixelperfect/internal/adapters/file"
	"pixelperfect/internal/core/domain"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	upscaleScale  string
	upscaleOutDir string
)

var upscaleCmd = &cobra.Command{
	Use:   "upscale <file>",
	Short: "Upscale a single image file",
	Long: "Upscale a single PNG, JPEG or WebP file and write it next to the original, or into --out,\n" +
		"as <name>_upscaled_<scale>.<ext>.",
	Args: cobra.ExactArgs(1),
	RunE: runUpscale,
}

func init() {
	upscaleCmd.Flags().StringVarP(&upscaleScale, "scale", "s", "2x", "scale factor, 2x or 4x")
	upscaleCmd.Flags().StringVarP(&upscaleOutDir, "out", "o", "", "output directory (default is the input's)")
}

func runUpscale(cmd *cobra.Command, args []string) error {
	path := args[0]

	scale, err := domain.ParseScaleFactor(upscaleScale)
	if err != nil {
		return err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}

	image, err := domain.NewImageAsset(filepath.Base(path), file.SniffMediaType(data), data)
	if err != nil {
		return err
	}

	a, err := buildApp(cfg)
	if err != nil {
		return err
	}
	defer a.store.Close()

	result, err := a.upscaler.UpscaleOnce(cmd.Context(), image, scale)
	if err != nil {
		return err
	}

	outDir := upscaleOutDir
	if outDir == "" {
		outDir = filepath.Dir(path)
	}

	out := filepath.Join(outDir, result.DownloadName)
	if err := os.WriteFile(out, result.Data, 0o644); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	log.Info().Str("file", out).Str("source", string(result.Source)).Interface("dimensions", result.Dimensions).
		Msg("upscaled image written")
	fmt.Fprintln(cmd.OutOrStdout(), out)

	return nil
}
