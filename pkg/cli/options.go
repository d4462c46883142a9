package cli

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/ekaya-inc/ekaya-datacompare/pkg/config"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/retry"
	"github.com/ekaya-inc/ekaya-datacompare/pkg/services"
)

// engineOptions maps the loaded configuration onto engine options.
func engineOptions(cfg *config.Config) services.Options {
	opts := services.DefaultOptions()
	m := cfg.Matching

	opts.Similarity.SampleSize = m.SampleSize
	opts.Mapper.Threshold = m.MappingThreshold
	opts.Mapper.MinCoverage = m.MinMappingCoverage
	opts.Identifier.UniquenessThreshold = m.UniquenessThreshold
	opts.Identifier.MaxKeyColumns = m.MaxKeyColumns
	opts.Identifier.MaxCombinations = m.MaxCombinations
	opts.Normalize.CaseInsensitive = m.CaseInsensitive
	opts.Normalize.TrimWhitespace = m.TrimWhitespace
	opts.Shards = m.Shards
	return opts
}

// applyMappingFile layers a mapping file over the configuration.
func applyMappingFile(opts *services.Options, mf *config.MappingFile) {
	if mf == nil {
		return
	}
	for _, e := range mf.ColumnMapping {
		opts.ColumnMapping = append(opts.ColumnMapping, services.ManualPair{Source: e.Source, Target: e.Target})
	}
	if len(mf.IDColumns) > 0 {
		opts.IDColumns = mf.IDColumns
	}
	if len(mf.CompareColumns) > 0 {
		opts.CompareColumns = mf.CompareColumns
	}
	if len(mf.ExcludeColumns) > 0 {
		opts.ExcludeColumns = mf.ExcludeColumns
	}
	if mf.CaseInsensitive != nil {
		opts.Normalize.CaseInsensitive = *mf.CaseInsensitive
	}
	if mf.TrimWhitespace != nil {
		opts.Normalize.TrimWhitespace = *mf.TrimWhitespace
	}
	if mf.MappingThreshold != nil {
		opts.Mapper.Threshold = *mf.MappingThreshold
	}
}

// applyFlags layers explicitly set command-line flags over everything else.
func applyFlags(cmd *cobra.Command, f *flags, opts *services.Options) {
	changed := cmd.Flags().Changed

	if changed("id-columns") {
		opts.IDColumns = splitList(f.idColumns)
	}
	if changed("compare-columns") {
		opts.CompareColumns = splitList(f.compareColumns)
	}
	if changed("exclude-columns") {
		opts.ExcludeColumns = splitList(f.excludeColumns)
	}
	if changed("case-insensitive") {
		opts.Normalize.CaseInsensitive = f.caseInsensitive
	}
	if changed("trim") {
		opts.Normalize.TrimWhitespace = f.trim
	}
	if changed("threshold") {
		opts.Mapper.Threshold = f.threshold
	}
	if changed("shards") {
		opts.Shards = f.shards
	}
}

// retryConfig applies the configured retry count to the default backoff.
func retryConfig(cfg *config.Config) *retry.Config {
	rc := retry.DefaultConfig()
	rc.MaxRetries = cfg.Datasource.ConnectRetries
	return rc
}

// splitList parses a comma-separated column list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
