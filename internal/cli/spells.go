package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/spf13/cobra"

	"github.com/asteroid-belt/spellbook/internal/catalog"
	"github.com/asteroid-belt/spellbook/internal/models"
)

var spellsCmd = &cobra.Command{
	Use:   "spells",
	Short: "Browse the spell catalog",
	Long: `Browse and search the bundled spell catalog.

Subcommands:
  search [query]  Search spells by name and filters
  show <id>       Show a spell's full description
  schools         List schools of magic
  classes         List spellcasting classes
  sources         List source books`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var spellsSearchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search spells",
	Long: `Search the catalog. The query matches spell names ignoring case; every
filter narrows the result further.

Examples:
  spellbook spells search fire
  spellbook spells search --level 1-3 --class wizard --concentration=false
  spellbook spells search --school evocation --sort level --desc`,
	RunE: runSpellsSearch,
}

var spellsShowCmd = &cobra.Command{
	Use:   "show <spell-id>",
	Short: "Show a spell's full description",
	Args:  cobra.ExactArgs(1),
	RunE:  runSpellsShow,
}

var spellsSchoolsCmd = &cobra.Command{
	Use:   "schools",
	Short: "List schools of magic in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFacet(cmd, "spells schools", (*catalog.Store).Schools)
	},
}

var spellsClassesCmd = &cobra.Command{
	Use:   "classes",
	Short: "List spellcasting classes in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFacet(cmd, "spells classes", (*catalog.Store).Classes)
	},
}

var spellsSourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List source books in the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runFacet(cmd, "spells sources", (*catalog.Store).Sources)
	},
}

var (
	searchLevel      string
	searchSchools    []string
	searchClasses    []string
	searchSources    []string
	searchConc       bool
	searchRitual     bool
	searchVerbal     bool
	searchSomatic    bool
	searchMaterial   bool
	searchSort       string
	searchDescending bool
	searchLimit      int

	showCopy bool
	showRaw  bool
)

func init() {
	f := spellsSearchCmd.Flags()
	f.StringVarP(&searchLevel, "level", "l", "", "Spell level or inclusive range, e.g. 3 or 1-5 (0 = cantrip)")
	f.StringSliceVar(&searchSchools, "school", nil, "School of magic (repeatable)")
	f.StringSliceVar(&searchClasses, "class", nil, "Class spell list (repeatable; matches any)")
	f.StringSliceVar(&searchSources, "source", nil, "Source book (repeatable)")
	f.BoolVar(&searchConc, "concentration", false, "Only concentration spells (=false to exclude them)")
	f.BoolVar(&searchRitual, "ritual", false, "Only ritual spells (=false to exclude them)")
	f.BoolVar(&searchVerbal, "verbal", false, "Require (or with =false exclude) a verbal component")
	f.BoolVar(&searchSomatic, "somatic", false, "Require (or with =false exclude) a somatic component")
	f.BoolVar(&searchMaterial, "material", false, "Require (or with =false exclude) a material component")
	f.StringVar(&searchSort, "sort", "name", "Sort by name, level or school")
	f.BoolVar(&searchDescending, "desc", false, "Sort descending")
	f.IntVar(&searchLimit, "limit", 0, "Maximum number of results (0 = all)")

	spellsShowCmd.Flags().BoolVar(&showCopy, "copy", false, "Copy the spell text to the clipboard")
	spellsShowCmd.Flags().BoolVar(&showRaw, "raw", false, "Print markdown without terminal styling")

	spellsCmd.AddCommand(spellsSearchCmd)
	spellsCmd.AddCommand(spellsShowCmd)
	spellsCmd.AddCommand(spellsSchoolsCmd)
	spellsCmd.AddCommand(spellsClassesCmd)
	spellsCmd.AddCommand(spellsSourcesCmd)
}

// parseLevelRange parses "3" or "1-5". Bounds must lie in 0..9.
func parseLevelRange(s string) (*catalog.LevelRange, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	lo, hi, isRange := strings.Cut(s, "-")
	minLevel, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return nil, fmt.Errorf("invalid level %q", s)
	}
	maxLevel := minLevel
	if isRange {
		if maxLevel, err = strconv.Atoi(strings.TrimSpace(hi)); err != nil {
			return nil, fmt.Errorf("invalid level %q", s)
		}
	}
	if minLevel < 0 || maxLevel > models.MaxSpellLevel || minLevel > maxLevel {
		return nil, fmt.Errorf("invalid level range %q: levels run from 0 to %d", s, models.MaxSpellLevel)
	}
	return &catalog.LevelRange{Min: minLevel, Max: maxLevel}, nil
}

// boolFlag returns a pointer to v when the flag was set explicitly.
func boolFlag(cmd *cobra.Command, name string, v bool) *bool {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &v
}

func searchFilters(cmd *cobra.Command, args []string) (catalog.Filters, error) {
	levels, err := parseLevelRange(searchLevel)
	if err != nil {
		return catalog.Filters{}, err
	}
	return catalog.Filters{
		Query:         strings.Join(args, " "),
		Levels:        levels,
		Schools:       searchSchools,
		Classes:       searchClasses,
		Sources:       searchSources,
		Concentration: boolFlag(cmd, "concentration", searchConc),
		Ritual:        boolFlag(cmd, "ritual", searchRitual),
		Verbal:        boolFlag(cmd, "verbal", searchVerbal),
		Somatic:       boolFlag(cmd, "somatic", searchSomatic),
		Material:      boolFlag(cmd, "material", searchMaterial),
	}, nil
}

func runSpellsSearch(cmd *cobra.Command, args []string) error {
	const name = "spells search"

	filters, err := searchFilters(cmd, args)
	if err != nil {
		return trackCLIError(name, err)
	}

	a, err := openApp()
	if err != nil {
		return trackCLIError(name, err)
	}
	defer a.close()

	if err := a.loadCatalog(cmd.Context()); err != nil {
		return trackCLIError(name, fmt.Errorf("load catalog: %w", err))
	}

	results := catalog.Sort(a.catalog.Search(filters), catalog.SortOptions{
		Field:      catalog.ParseSortField(searchSort),
		Descending: searchDescending,
	})
	telemetryClient.TrackSpellSearched(len(filters.Query), cmd.Flags().NFlag(), len(results), "cli")

	out := cmd.OutOrStdout()
	if len(results) == 0 {
		_, _ = fmt.Fprintln(out, "No spells match.")
		return nil
	}

	shown := results
	if searchLimit > 0 && len(shown) > searchLimit {
		shown = shown[:searchLimit]
	}
	_, _ = fmt.Fprintf(out, "SPELLS (%d of %d)\n%s\n", len(shown), len(results), ruler)
	for i := range shown {
		_, _ = fmt.Fprintln(out, renderSpellRow(&shown[i]))
	}
	return nil
}

func runSpellsShow(cmd *cobra.Command, args []string) error {
	const name = "spells show"

	a, err := openApp()
	if err != nil {
		return trackCLIError(name, err)
	}
	defer a.close()

	if err := a.loadCatalog(cmd.Context()); err != nil {
		return trackCLIError(name, fmt.Errorf("load catalog: %w", err))
	}

	sp, ok := a.catalog.GetByID(args[0])
	if !ok {
		return trackCLIError(name, fmt.Errorf("spell '%s' not found", args[0]))
	}
	telemetryClient.TrackSpellViewed(sp.ID, "cli")

	out := cmd.OutOrStdout()
	text := spellMarkdown(sp)
	if showRaw {
		_, _ = fmt.Fprint(out, text)
	} else {
		_, _ = fmt.Fprint(out, renderSpellCard(sp))
		_, _ = fmt.Fprintln(out)
		body := sp.Description
		if sp.HigherLevels != "" {
			body += "\n\n**At Higher Levels.** " + sp.HigherLevels
		}
		_, _ = fmt.Fprint(out, renderMarkdown(body))
	}

	if showCopy {
		if err := clipboard.WriteAll(text); err != nil {
			return trackCLIError(name, fmt.Errorf("copy to clipboard: %w", err))
		}
		telemetryClient.TrackSpellCopied(sp.ID)
		_, _ = fmt.Fprintln(out, successStyle.Render("✓ Copied to clipboard"))
	}
	return nil
}

func runFacet(cmd *cobra.Command, name string, values func(*catalog.Store) []string) error {
	a, err := openApp()
	if err != nil {
		return trackCLIError(name, err)
	}
	defer a.close()

	if err := a.loadCatalog(cmd.Context()); err != nil {
		return trackCLIError(name, fmt.Errorf("load catalog: %w", err))
	}

	for _, v := range values(a.catalog) {
		_, _ = fmt.Fprintln(cmd.OutOrStdout(), v)
	}
	return nil
}
