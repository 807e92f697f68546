package main

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/viant/mlvec/vector"
)

func newEncodeCmd() *cobra.Command {
	var typeName string
	cmd := &cobra.Command{
		Use:   "encode VALUE...",
		Short: "Encode numbers as a hex vector blob",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			t, err := vector.ParseElementType(typeName)
			if err != nil {
				return err
			}
			v, err := parseVector(t, args)
			if err != nil {
				return err
			}
			blob, err := vector.Serialize(v, t)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), hex.EncodeToString(blob))
			return err
		},
	}
	cmd.Flags().StringVarP(&typeName, "type", "t", "float32", "element type: float32, float64, int32 or int64")
	return cmd
}

func newDecodeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "decode HEX",
		Short: "Decode a hex vector blob and print its elements",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := decodeHex(args[0])
			if err != nil {
				return err
			}
			v, t, err := vector.Deserialize(blob)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "%s %d %s\n", t, v.Len(), formatValues(v))
			return err
		},
	}
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect HEX",
		Short: "Validate a hex vector blob and print its header",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			blob, err := decodeHex(args[0])
			if err != nil {
				return err
			}
			h, err := vector.PeekHeader(blob)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "magic=0x%08x version=%d count=%d type=%s size=%d\n",
				h.Magic, h.Version, h.Count, h.ElementType, len(blob))
			return err
		},
	}
}

func decodeHex(text string) ([]byte, error) {
	blob, err := hex.DecodeString(strings.TrimSpace(text))
	if err != nil {
		return nil, fmt.Errorf("invalid hex blob: %w", err)
	}
	return blob, nil
}

// parseVector parses args as elements of type t.
func parseVector(t vector.ElementType, args []string) (vector.Vector, error) {
	switch t {
	case vector.Float32:
		values := make([]float32, len(args))
		for i, arg := range args {
			f, err := strconv.ParseFloat(arg, 32)
			if err != nil {
				return vector.Vector{}, err
			}
			values[i] = float32(f)
		}
		return vector.NewFloat32(values)
	case vector.Float64:
		values := make([]float64, len(args))
		for i, arg := range args {
			f, err := strconv.ParseFloat(arg, 64)
			if err != nil {
				return vector.Vector{}, err
			}
			values[i] = f
		}
		return vector.NewFloat64(values)
	case vector.Int32:
		values := make([]int32, len(args))
		for i, arg := range args {
			n, err := strconv.ParseInt(arg, 10, 32)
			if err != nil {
				return vector.Vector{}, err
			}
			values[i] = int32(n)
		}
		return vector.NewInt32(values)
	case vector.Int64:
		values := make([]int64, len(args))
		for i, arg := range args {
			n, err := strconv.ParseInt(arg, 10, 64)
			if err != nil {
				return vector.Vector{}, err
			}
			values[i] = n
		}
		return vector.NewInt64(values)
	}
	return vector.Vector{}, fmt.Errorf("unsupported element type %s", t)
}

func formatValues(v vector.Vector) string {
	switch v.Type() {
	case vector.Float32:
		return fmt.Sprint(v.Float32s())
	case vector.Float64:
		return fmt.Sprint(v.Float64s())
	case vector.Int32:
		return fmt.Sprint(v.Int32s())
	case vector.Int64:
		return fmt.Sprint(v.Int64s())
	}
	return "[]"
}
