package main

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/manthysbr/aiexpert/internal/core/domain"
)

func newChatCmd(g *globals) *cobra.Command {
	var noStream bool
	cmd := &cobra.Command{
		Use:   "chat <message>",
		Short: "Send one message and stream the reply with the active provider",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			message := strings.Join(args, " ")
			if noStream {
				reply, err := a.facade.Chat(cmd.Context(), message)
				if err != nil {
					return err
				}
				_, err = fmt.Fprintln(out, reply)
				return err
			}

			err = a.facade.ChatStream(cmd.Context(), message, func(chunk string) {
				fmt.Fprint(out, chunk)
			})
			fmt.Fprintln(out)
			return err
		},
	}
	cmd.Flags().BoolVar(&noStream, "no-stream", false, "Wait for the whole reply instead of streaming it")
	return cmd
}

func newEnhanceCmd(g *globals) *cobra.Command {
	var settings domain.PromptSettings
	cmd := &cobra.Command{
		Use:   "enhance <idea>",
		Short: "Turn an idea and style options into a detailed image prompt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			settings.Idea = strings.Join(args, " ")
			prompt, err := a.facade.EnhancePrompt(cmd.Context(), settings)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), prompt)
			return err
		},
	}
	cmd.Flags().StringVar(&settings.Style, "style", "", "Art style, e.g. watercolor")
	cmd.Flags().StringVar(&settings.Lighting, "lighting", "", "Lighting, e.g. golden hour")
	cmd.Flags().StringVar(&settings.Angle, "angle", "", "Camera angle")
	cmd.Flags().StringVar(&settings.Mood, "mood", "", "Mood")
	cmd.Flags().StringVar(&settings.NegativePrompt, "negative", "", "Things to avoid")
	return cmd
}

func newDescribeCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "describe <image-file>",
		Short: "Write a generation prompt that reproduces an existing image",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			img, err := readImage(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			prompt, err := a.facade.GeneratePromptFromImage(cmd.Context(), img)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), prompt)
			return err
		},
	}
}

func newRefineCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:   "refine <request>",
		Short: "Rewrite a free-form edit request as an English editing instruction",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			instruction, err := a.facade.RefineEditPrompt(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), instruction)
			return err
		},
	}
}

func newImagineCmd(g *globals) *cobra.Command {
	var (
		count  int
		aspect string
		outDir string
	)
	cmd := &cobra.Command{
		Use:   "imagine <prompt>",
		Short: "Generate images with the cloud image model",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ratio, err := domain.ParseAspectRatio(aspect)
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			images, err := a.facade.GenerateImages(cmd.Context(), strings.Join(args, " "), count, ratio)
			if err != nil {
				return err
			}
			return writeImages(cmd.OutOrStdout(), outDir, "image", images)
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of images (1-4)")
	cmd.Flags().StringVar(&aspect, "aspect", "1:1", "Aspect ratio: 1:1, 16:9, 9:16, 4:3, 3:4")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	return cmd
}

func newEditCmd(g *globals) *cobra.Command {
	var (
		aspect string
		outDir string
		refine bool
	)
	cmd := &cobra.Command{
		Use:   "edit <image-file> <instruction>",
		Short: "Edit an image with the cloud editing model",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ratio, err := domain.ParseAspectRatio(aspect)
			if err != nil {
				return err
			}
			img, err := readImage(args[0])
			if err != nil {
				return err
			}

			a, err := newApp(cmd.Context(), g)
			if err != nil {
				return err
			}
			defer a.Close()

			instruction := strings.Join(args[1:], " ")
			if refine {
				if instruction, err = a.facade.RefineEditPrompt(cmd.Context(), instruction); err != nil {
					return err
				}
				g.logger.Info("refined edit instruction", "instruction", instruction)
			}

			images, err := a.facade.EditImage(cmd.Context(), instruction, img, ratio)
			if err != nil {
				return err
			}
			return writeImages(cmd.OutOrStdout(), outDir, "edit", images)
		},
	}
	cmd.Flags().StringVar(&aspect, "aspect", "1:1", "Aspect ratio: 1:1, 16:9, 9:16, 4:3, 3:4")
	cmd.Flags().StringVarP(&outDir, "out", "o", ".", "Output directory")
	cmd.Flags().BoolVar(&refine, "refine", false, "Rewrite the instruction into English before editing")
	return cmd
}

// readImage loads a file and sniffs its mime type.
func readImage(path string) (domain.Image, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Image{}, fmt.Errorf("read image: %w", err)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return domain.Image{}, fmt.Errorf("%s is not an image (detected %s)", path, mime)
	}
	return domain.Image{MIMEType: mime, Data: data}, nil
}

// writeImages decodes data URIs into files named <prefix>-<n>.<ext> and
// prints each path.
func writeImages(out io.Writer, dir, prefix string, uris []string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	for i, uri := range uris {
		img, err := domain.ParseDataURI(uri)
		if err != nil {
			return err
		}
		path := filepath.Join(dir, fmt.Sprintf("%s-%d%s", prefix, i+1, extensionFor(img.MIMEType)))
		if err := os.WriteFile(path, img.Data, 0o644); err != nil {
			return fmt.Errorf("write image: %w", err)
		}
		fmt.Fprintln(out, path)
	}
	return nil
}

func extensionFor(mime string) string {
	switch mime {
	case "image/png":
		return ".png"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".jpg"
	}
}
