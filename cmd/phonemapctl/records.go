package main

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/samirrijal/phonemap/internal/core/domain"
	"github.com/samirrijal/phonemap/internal/pkg/export"
	"github.com/samirrijal/phonemap/internal/pkg/phone"
)

func listCmd(open opener) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records in insertion order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, _, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer records.Close()

			list := records.List(cmd.Context())
			if asJSON {
				return export.Encode(cmd.OutOrStdout(), list, export.JSON.Name)
			}
			printRecords(cmd.OutOrStdout(), list)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&asJSON, "json", "j", false, "Output as JSON")
	return cmd
}

func addCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "add <phone-number> <location>",
		Short: "Add a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, _, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer records.Close()

			rec, err := records.Add(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "added %s (%s at %.4f, %.4f)\n", rec.ID, rec.Location, rec.Lat, rec.Lng)
			return nil
		},
	}
}

func rmCmd(open opener) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>...",
		Short: "Remove records by id",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			records, _, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer records.Close()

			for _, id := range args {
				removed, err := records.Remove(cmd.Context(), id)
				if err != nil {
					return err
				}
				if removed {
					fmt.Fprintf(cmd.OutOrStdout(), "removed %s\n", id)
				} else {
					fmt.Fprintf(cmd.OutOrStdout(), "no record %s\n", id)
				}
			}
			return nil
		},
	}
}

func exportCmd(open opener) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole collection as JSON or protobuf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, _, err := open(cmd.Context())
			if err != nil {
				return err
			}
			defer records.Close()

			if _, err := export.Lookup(format); err != nil {
				return err
			}
			list := records.List(cmd.Context())
			encode := func(w io.Writer) error { return export.Encode(w, list, format) }

			if output == "" || output == "-" {
				return encode(cmd.OutOrStdout())
			}
			f, err := os.Create(output)
			if err != nil {
				return err
			}
			return writeAndClose(f, encode)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format (json, protobuf)")
	cmd.Flags().StringVarP(&output, "output", "o", "-", "Output file")
	return cmd
}

// writeAndClose runs encode against wc and closes it, reporting the encode
// error first and otherwise the close error, so a failed flush is not lost.
func writeAndClose(wc io.WriteCloser, encode func(io.Writer) error) error {
	err := encode(wc)
	if cerr := wc.Close(); err == nil {
		err = cerr
	}
	return err
}

func printRecords(w io.Writer, list []domain.PhoneRecord) {
	if len(list) == 0 {
		fmt.Fprintln(w, "no records")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tPHONE\tLOCATION\tLAT\tLNG\tSAVED")
	for _, r := range list {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%.4f\t%.4f\t%s\n",
			r.ID, phone.Format(r.PhoneNumber), r.Location, r.Lat, r.Lng,
			r.Timestamp.Local().Format(time.DateTime))
	}
	tw.Flush()
}
