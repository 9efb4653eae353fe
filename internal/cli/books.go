package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/asteroid-belt/spellbook/internal/models"
	"github.com/asteroid-belt/spellbook/internal/spellbooks"
)

var booksCmd = &cobra.Command{
	Use:     "books",
	Aliases: []string{"book"},
	Short:   "Manage your spellbooks",
	Long: `Manage your spellbooks.

A spellbook is referenced by its id or by its name (ignoring case).

Subcommands:
  list                          List spellbooks
  show <book>                   Show a spellbook grouped by level
  create <name>                 Create a spellbook
  add <book> <spell-id>...      Add spells
  remove <book> <spell-id>      Remove a spell
  prepare <book> <spell-id>     Toggle a spell's prepared flag
  notes <book> <spell-id> [..]  Set or clear a spell's notes
  rename <book> <new-name>      Rename a spellbook
  profile <book>                Update the casting profile
  copy <book>                   Duplicate a spellbook
  delete <book>                 Delete a spellbook`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return cmd.Help()
	},
}

var booksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List spellbooks, most recently updated first",
	Args:  cobra.NoArgs,
	RunE:  runBooksList,
}

var booksShowCmd = &cobra.Command{
	Use:   "show <book>",
	Short: "Show a spellbook grouped by spell level",
	Args:  cobra.ExactArgs(1),
	RunE:  runBooksShow,
}

var booksCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a spellbook",
	Long: `Create a spellbook, optionally with a casting profile and initial spells.

Examples:
  spellbook books create "Elminster"
  spellbook books create "Tasha" --ability INT --attack 7 --dc 15 --slots 4,3,3,1
  spellbook books create "Quick Picks" --spells fireball,misty-step`,
	Args: cobra.ExactArgs(1),
	RunE: runBooksCreate,
}

var booksAddCmd = &cobra.Command{
	Use:   "add <book> <spell-id>...",
	Short: "Add spells to a spellbook",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runBooksAdd,
}

var booksRemoveCmd = &cobra.Command{
	Use:   "remove <book> <spell-id>",
	Short: "Remove a spell from a spellbook",
	Args:  cobra.ExactArgs(2),
	RunE:  runBooksRemove,
}

var booksPrepareCmd = &cobra.Command{
	Use:   "prepare <book> <spell-id>",
	Short: "Toggle whether a spell is prepared",
	Args:  cobra.ExactArgs(2),
	RunE:  runBooksPrepare,
}

var booksNotesCmd = &cobra.Command{
	Use:   "notes <book> <spell-id> [text...]",
	Short: "Set a spell's notes; omit text to clear them",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runBooksNotes,
}

var booksRenameCmd = &cobra.Command{
	Use:   "rename <book> <new-name>",
	Short: "Rename a spellbook",
	Args:  cobra.ExactArgs(2),
	RunE:  runBooksRename,
}

var booksProfileCmd = &cobra.Command{
	Use:   "profile <book>",
	Short: "Update a spellbook's casting profile",
	Args:  cobra.ExactArgs(1),
	RunE:  runBooksProfile,
}

var booksCopyCmd = &cobra.Command{
	Use:   "copy <book>",
	Short: "Duplicate a spellbook's profile and spells",
	Long: `Duplicate a spellbook. The copy gets the same casting profile and spell
list, named "<name> (Copy)". Prepared flags and notes are not copied.`,
	Args: cobra.ExactArgs(1),
	RunE: runBooksCopy,
}

var booksDeleteCmd = &cobra.Command{
	Use:   "delete <book>",
	Short: "Delete a spellbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runBooksDelete,
}

// profileFlags holds the casting profile flags shared by create and profile.
type profileFlags struct {
	ability string
	attack  int
	dc      int
	slots   string
}

var (
	createProfile profileFlags
	createSpells  []string
	editProfile   profileFlags
	deleteYes     bool
)

func (p *profileFlags) register(cmd *cobra.Command) {
	f := cmd.Flags()
	f.StringVar(&p.ability, "ability", "", "Spellcasting ability: INT, WIS or CHA")
	f.IntVar(&p.attack, "attack", 0, "Spell attack modifier")
	f.IntVar(&p.dc, "dc", 0, "Spell save DC")
	f.StringVar(&p.slots, "slots", "", "Max spell slots per level, comma separated from level 1, e.g. 4,3,2")
}

func init() {
	createProfile.register(booksCreateCmd)
	booksCreateCmd.Flags().StringSliceVar(&createSpells, "spells", nil, "Spell ids to add after creating")
	editProfile.register(booksProfileCmd)
	booksDeleteCmd.Flags().BoolVarP(&deleteYes, "yes", "y", false, "Confirm the deletion")

	booksCmd.AddCommand(booksListCmd)
	booksCmd.AddCommand(booksShowCmd)
	booksCmd.AddCommand(booksCreateCmd)
	booksCmd.AddCommand(booksAddCmd)
	booksCmd.AddCommand(booksRemoveCmd)
	booksCmd.AddCommand(booksPrepareCmd)
	booksCmd.AddCommand(booksNotesCmd)
	booksCmd.AddCommand(booksRenameCmd)
	booksCmd.AddCommand(booksProfileCmd)
	booksCmd.AddCommand(booksCopyCmd)
	booksCmd.AddCommand(booksDeleteCmd)
}

// parseSlots parses "4,3,2" into slots for levels 1, 2 and 3.
func parseSlots(s string) (*models.SpellSlots, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	if len(parts) > models.MaxSpellLevel {
		return nil, fmt.Errorf("invalid slots %q: at most %d levels", s, models.MaxSpellLevel)
	}
	var v [models.MaxSpellLevel]int
	for i, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid slots %q: %w", s, err)
		}
		v[i] = n
	}
	return &models.SpellSlots{
		Level1: v[0], Level2: v[1], Level3: v[2],
		Level4: v[3], Level5: v[4], Level6: v[5],
		Level7: v[6], Level8: v[7], Level9: v[8],
	}, nil
}

// update builds a profile update from the flags that were set on cmd.
func (p *profileFlags) update(cmd *cobra.Command) (models.SpellbookUpdate, error) {
	var u models.SpellbookUpdate
	f := cmd.Flags()
	if f.Changed("ability") {
		u.SpellcastingAbility = &p.ability
	}
	if f.Changed("attack") {
		u.SpellAttackModifier = &p.attack
	}
	if f.Changed("dc") {
		u.SpellSaveDC = &p.dc
	}
	if f.Changed("slots") {
		slots, err := parseSlots(p.slots)
		if err != nil {
			return u, err
		}
		if slots == nil {
			slots = &models.SpellSlots{}
		}
		u.MaxSpellSlots = slots
	}
	return u, nil
}

// outcomeError turns an error-level outcome into a command error.
func outcomeError(o spellbooks.Outcome) error {
	if o.Level != spellbooks.LevelError {
		return nil
	}
	if o.Err != nil {
		return fmt.Errorf("%s: %w", o.Message, o.Err)
	}
	return errors.New(o.Message)
}

func runBooksList(cmd *cobra.Command, args []string) error {
	const name = "books list"

	a, err := openApp()
	if err != nil {
		return trackCLIError(name, err)
	}
	defer a.close()

	books, err := a.db.ListSpellbooks(cmd.Context())
	if err != nil {
		return trackCLIError(name, fmt.Errorf("list spellbooks: %w", err))
	}

	out := cmd.OutOrStdout()
	if len(books) == 0 {
		_, _ = fmt.Fprintln(out, "No spellbooks yet.")
		_, _ = fmt.Fprintln(out, "\nUse 'spellbook books create <name>' to create one.")
		return nil
	}

	_, _ = fmt.Fprintf(out, "SPELLBOOKS (%d)\n%s\n", len(books), ruler)
	for i := range books {
		_, _ = fmt.Fprintln(out, renderSpellbookSummary(&books[i]))
	}

	stats, err := a.db.GetStats(cmd.Context())
	if err != nil {
		a.logger.Warn("database stats", zap.Error(err))
		return nil
	}
	_, _ = fmt.Fprintf(out, "%s\n%s\n", ruler, mutedStyle.Render(fmt.Sprintf("%d entries across %d spellbooks, %.1f KB on disk",
		stats.TotalEntries, stats.TotalSpellbooks, float64(stats.SizeBytes)/1024)))
	return nil
}

func runBooksShow(cmd *cobra.Command, args []string) error {
	const name = "books show"

	a, err := openApp()
	if err != nil {
		return trackCLIError(name, err)
	}
	defer a.close()

	if err := a.loadCatalog(cmd.Context()); err != nil {
		return trackCLIError(name, fmt.Errorf("load catalog: %w", err))
	}
	book, err := a.findSpellbook(cmd.Context(), args[0])
	if err != nil {
		return trackCLIError(name, err)
	}

	resolved, missing := spellbooks.ResolveSpells(book, a.catalog)
	_, _ = fmt.Fprint(cmd.OutOrStdout(), renderSpellbook(book, resolved, missing))
	return nil
}

func runBooksCreate(cmd *cobra.Command, args []string) error {
	const name = "books create"

	u, err := createProfile.update(cmd)
	if err != nil {
		return trackCLIError(name, err)
	}

	a, err := openApp()
	if err != nil {
		return trackCLIError(name, err)
	}
	defer a.close()

	if len(createSpells) > 0 {
		if err := a.loadCatalog(cmd.Context()); err != nil {
			return trackCLIError(name, fmt.Errorf("load catalog: %w", err))
		}
		if err := a.checkSpellIDs(createSpells); err != nil {
			return trackCLIError(name, err)
		}
	}

	input := models.CreateSpellbookInput{
		Name:                args[0],
		SpellAttackModifier: u.SpellAttackModifier,
		SpellSaveDC:         u.SpellSaveDC,
		MaxSpellSlots:       u.MaxSpellSlots,
	}
	if u.SpellcastingAbility != nil {
		input.SpellcastingAbility = *u.SpellcastingAbility
	}

	outcome, err := a.books.CreateAndPopulate(cmd.Context(), input, createSpells)
	if err != nil {
		return trackCLIError(name, err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderOutcome(outcome))
	return trackCLIError(name, outcomeError(outcome))
}

func runBooksAdd(cmd *cobra.Command, args []string) error {
	const name = "books add"

	a, err := openApp()
	if err != nil {
		return trackCLIError(name, err)
	}
	defer a.close()

	if err := a.loadCatalog(cmd.Context()); err != nil {
		return trackCLIError(name, fmt.Errorf("load catalog: %w", err))
	}
	book, err := a.findSpellbook(cmd.Context(), args[0])
	if err != nil {
		return trackCLIError(name, err)
	}
	spellIDs := args[1:]
	if err := a.checkSpellIDs(spellIDs); err != nil {
		return trackCLIError(name, err)
	}

	outcome := a.books.BatchAdd(cmd.Context(), book.ID, spellIDs)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderOutcome(outcome))
	return trackCLIError(name, outcomeError(outcome))
}

func runBooksRemove(cmd *cobra.Command, args []string) error {
	const name = "books remove"

	a, err := openApp()
	if err != nil {
		return trackCLIError(name, err)
	}
	defer a.close()

	book, err := a.findSpellbook(cmd.Context(), args[0])
	if err != nil {
		return trackCLIError(name, err)
	}
	if !book.HasSpell(args[1]) {
		return trackCLIError(name, fmt.Errorf("spell '%s' not found in %s", args[1], book.Name))
	}

	if _, err := a.db.RemoveSpellFromSpellbook(cmd.Context(), book.ID, args[1]); err != nil {
		return trackCLIError(name, fmt.Errorf("remove spell: %w", err))
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Removed %s from %s", args[1], book.Name)))
	return nil
}

func runBooksPrepare(cmd *cobra.Command, args []string) error {
	const name = "books prepare"

	a, err := openApp()
	if err != nil {
		return trackCLIError(name, err)
	}
	defer a.close()

	book, err := a.findSpellbook(cmd.Context(), args[0])
	if err != nil {
		return trackCLIError(name, err)
	}
	if !book.HasSpell(args[1]) {
		return trackCLIError(name, fmt.Errorf("spell '%s' not found in %s", args[1], book.Name))
	}

	updated, err := a.db.ToggleSpellPrepared(cmd.Context(), book.ID, args[1])
	if err != nil {
		return trackCLIError(name, fmt.Errorf("toggle prepared: %w", err))
	}

	state := "unprepared"
	if i := updated.FindSpell(args[1]); i >= 0 && updated.Spells[i].Prepared {
		state = "prepared"
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ %s is now %s", args[1], state)))
	return nil
}

func runBooksNotes(cmd *cobra.Command, args []string) error {
	const name = "books notes"

	a, err := openApp()
	if err != nil {
		return trackCLIError(name, err)
	}
	defer a.close()

	book, err := a.findSpellbook(cmd.Context(), args[0])
	if err != nil {
		return trackCLIError(name, err)
	}
	if !book.HasSpell(args[1]) {
		return trackCLIError(name, fmt.Errorf("spell '%s' not found in %s", args[1], book.Name))
	}

	notes := strings.Join(args[2:], " ")
	if _, err := a.db.UpdateSpellNotes(cmd.Context(), book.ID, args[1], notes); err != nil {
		return trackCLIError(name, fmt.Errorf("update notes: %w", err))
	}

	msg := fmt.Sprintf("✓ Updated notes for %s", args[1])
	if notes == "" {
		msg = fmt.Sprintf("✓ Cleared notes for %s", args[1])
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(msg))
	return nil
}

func runBooksRename(cmd *cobra.Command, args []string) error {
	const name = "books rename"

	a, err := openApp()
	if err != nil {
		return trackCLIError(name, err)
	}
	defer a.close()

	book, err := a.findSpellbook(cmd.Context(), args[0])
	if err != nil {
		return trackCLIError(name, err)
	}
	updated, err := a.books.Rename(cmd.Context(), book.ID, args[1])
	if err != nil {
		return trackCLIError(name, err)
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Renamed %s to %s", book.Name, updated.Name)))
	return nil
}

func runBooksProfile(cmd *cobra.Command, args []string) error {
	const name = "books profile"

	u, err := editProfile.update(cmd)
	if err != nil {
		return trackCLIError(name, err)
	}

	a, err := openApp()
	if err != nil {
		return trackCLIError(name, err)
	}
	defer a.close()

	book, err := a.findSpellbook(cmd.Context(), args[0])
	if err != nil {
		return trackCLIError(name, err)
	}
	updated, err := a.books.UpdateProfile(cmd.Context(), book.ID, u)
	if err != nil {
		return trackCLIError(name, err)
	}

	profile := renderProfile(updated)
	if profile == "" {
		profile = "no profile"
	}
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render(fmt.Sprintf("✓ Updated %s: %s", updated.Name, profile)))
	return nil
}

func runBooksCopy(cmd *cobra.Command, args []string) error {
	const name = "books copy"

	a, err := openApp()
	if err != nil {
		return trackCLIError(name, err)
	}
	defer a.close()

	book, err := a.findSpellbook(cmd.Context(), args[0])
	if err != nil {
		return trackCLIError(name, err)
	}

	outcome := a.books.Copy(cmd.Context(), book.ID)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderOutcome(outcome))
	return trackCLIError(name, outcomeError(outcome))
}

func runBooksDelete(cmd *cobra.Command, args []string) error {
	const name = "books delete"

	a, err := openApp()
	if err != nil {
		return trackCLIError(name, err)
	}
	defer a.close()

	book, err := a.findSpellbook(cmd.Context(), args[0])
	if err != nil {
		return trackCLIError(name, err)
	}
	if !deleteYes {
		return trackCLIError(name, fmt.Errorf("refusing to delete %s (%d spells) without --yes", book.Name, len(book.Spells)))
	}

	outcome := a.books.Delete(cmd.Context(), book.ID)
	_, _ = fmt.Fprintln(cmd.OutOrStdout(), renderOutcome(outcome))
	return trackCLIError(name, outcomeError(outcome))
}
