package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bassista/go_persist/internal/codec"
	"github.com/bassista/go_persist/internal/document"
	"github.com/bassista/go_persist/internal/persist"
	"github.com/bassista/go_persist/internal/repository"
	"github.com/spf13/cobra"
)

var showCmd = &cobra.Command{
	Use:   "show [file]",
	Short: "Print a document as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  runShow,
}

var getCmd = &cobra.Command{
	Use:   "get [file] [key]",
	Short: "Print the value stored under a top-level key",
	Args:  cobra.ExactArgs(2),
	RunE:  runGet,
}

var setCmd = &cobra.Command{
	Use:   "set [file] [key] [json-value]",
	Short: "Store a JSON value under a top-level key",
	Long: `Loads the document (an absent file starts empty), stores the value and
writes the file back. A null value removes the key.`,
	Args: cobra.ExactArgs(3),
	RunE: runSet,
}

var convertCmd = &cobra.Command{
	Use:   "convert [src] [dst]",
	Short: "Rewrite a document in the format of another file extension",
	Args:  cobra.ExactArgs(2),
	RunE:  runConvert,
}

func init() {
	rootCmd.AddCommand(showCmd)
	rootCmd.AddCommand(getCmd)
	rootCmd.AddCommand(setCmd)
	rootCmd.AddCommand(convertCmd)
}

func openDocument(path string) (*persist.Value[document.Document], error) {
	c, err := codec.ForPath[document.Document](path)
	if err != nil {
		return nil, err
	}
	store := repository.NewFileRepository(repository.WithCreateDirs())
	return persist.NewValue(document.New(), repository.Location(path), c, store), nil
}

func loadDocument(ctx context.Context, path string) (*persist.Value[document.Document], error) {
	v, err := openDocument(path)
	if err != nil {
		return nil, err
	}
	if err := v.Load(ctx); err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}
	if v.Data == nil {
		v.Data = document.New()
	}
	return v, nil
}

func printJSON(cmd *cobra.Command, v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	cmd.Println(string(out))
	return nil
}

func runShow(cmd *cobra.Command, args []string) error {
	v, err := loadDocument(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	return printJSON(cmd, v.Data)
}

func runGet(cmd *cobra.Command, args []string) error {
	v, err := loadDocument(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	value, err := v.Data.Get(args[1])
	if err != nil {
		return fmt.Errorf("%s: %w", args[1], err)
	}
	return printJSON(cmd, value)
}

func runSet(cmd *cobra.Command, args []string) error {
	path, key := args[0], args[1]

	var value any
	if err := json.Unmarshal([]byte(args[2]), &value); err != nil {
		return fmt.Errorf("invalid JSON value: %w", err)
	}

	v, err := loadDocument(cmd.Context(), path)
	if err != nil {
		if !persist.IsNotFound(err) {
			return err
		}
		if v, err = openDocument(path); err != nil {
			return err
		}
	}

	v.Data.Merge(document.Document{key: value})
	if err := v.Persist(cmd.Context()); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	cmd.Printf("%s updated\n", path)
	return nil
}

func runConvert(cmd *cobra.Command, args []string) error {
	src, err := loadDocument(cmd.Context(), args[0])
	if err != nil {
		return err
	}
	dst, err := openDocument(args[1])
	if err != nil {
		return err
	}
	if src.Location().Path() == dst.Location().Path() {
		return errors.New("source and destination are the same file")
	}

	dst.Data = src.Data
	if err := dst.Persist(cmd.Context()); err != nil {
		return fmt.Errorf("failed to write %s: %w", args[1], err)
	}
	cmd.Printf("%s (%s) -> %s (%s)\n", args[0], src.Format(), args[1], dst.Format())
	return nil
}
