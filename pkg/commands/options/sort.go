package options

import (
	"github.com/spf13/cobra"

	"tableflip.dev/nexday/pkg/ordering"
)

// SortOptions
type SortOptions struct {
	Sort    string
	Reverse bool
}

func AddSortArgs(cmd *cobra.Command, o *SortOptions) {
	cmd.Flags().StringVarP(&o.Sort, "sort", "s", "",
		"Sort by manual, difficulty or time. The stored preference is used when unset.")
	cmd.Flags().BoolVarP(&o.Reverse, "reverse", "r", false,
		"Reverse the sort.")
}

// GetMode returns the requested mode, or "" for the stored preference.
func (o *SortOptions) GetMode() (ordering.Mode, error) {
	if o.Sort == "" {
		return "", nil
	}
	return ordering.ParseMode(o.Sort)
}
