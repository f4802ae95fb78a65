package main

import (
	"bytes"
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/calybase/treasury/internal/domain"
	"github.com/calybase/treasury/internal/export"
	"github.com/calybase/treasury/internal/handlers"
	"github.com/calybase/treasury/internal/importer"
	"github.com/calybase/treasury/internal/ofx"
	"github.com/calybase/treasury/internal/reconcile"
	"github.com/calybase/treasury/internal/rules"
	"github.com/calybase/treasury/internal/scanner"
	"github.com/calybase/treasury/internal/server"
	"github.com/calybase/treasury/internal/statement"
	"github.com/calybase/treasury/internal/store"
	"github.com/calybase/treasury/internal/ui"
	"github.com/calybase/treasury/internal/validate"
)

const version = "0.1.0"

func usage() {
	fmt.Fprint(os.Stderr, `treasury - Bank statement ingestion and reconciliation for CalyBase

Usage:
  treasury <command> [flags]

Commands:
  parse      Parse a statement file and show the normalized transactions
  import     Parse a statement and import it into the store
  payment    Register an expected payment (pending)
  reconcile  Propose matches between unreconciled credits and pending payments
  confirm    Confirm a proposed match
  export     Export stored transactions as CSV
  serve      Run the HTTP API
  version    Show version

Store selection (import, payment, reconcile, confirm, export, serve):
  -project <id>   Use Cloud Firestore in the given project
  -db <path>      Use a local SQLite database

Examples:
  # Parse a Belfius export without touching the store
  treasury parse -input releve.csv -bank belfius

  # Import into a local database
  treasury import -input releve.csv -db treasury.db -user marc

  # Propose and confirm matches
  treasury reconcile -db treasury.db
  treasury confirm -db treasury.db -transaction belfius-2024-03-15-MEM-2024-2500 -payment pay-042

`)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(1)
	}

	var err error
	switch os.Args[1] {
	case "parse":
		err = cmdParse(os.Args[2:])
	case "import":
		err = cmdImport(os.Args[2:])
	case "payment":
		err = cmdPayment(os.Args[2:])
	case "reconcile":
		err = cmdReconcile(os.Args[2:])
	case "confirm":
		err = cmdConfirm(os.Args[2:])
	case "export":
		err = cmdExport(os.Args[2:])
	case "serve":
		err = cmdServe(os.Args[2:])
	case "version":
		fmt.Printf("treasury version %s\n", version)
	case "-h", "-help", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "Error: unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// cliStore is the full store surface the CLI drives.
type cliStore interface {
	handlers.Store
	CreatePayment(ctx context.Context, p *domain.Payment) error
	Close() error
}

// storeFlags adds the shared store-selection flags to a flag set.
func storeFlags(fs *flag.FlagSet) (project, db *string) {
	project = fs.String("project", "", "Firestore project ID")
	db = fs.String("db", "", "Local SQLite database path")
	return project, db
}

func openStore(ctx context.Context, project, db string) (cliStore, error) {
	switch {
	case project != "" && db != "":
		return nil, fmt.Errorf("-project and -db are mutually exclusive")
	case project != "":
		return store.NewFirestoreStore(ctx, project)
	case db != "":
		return store.OpenSQLite(db)
	default:
		return nil, fmt.Errorf("either -project or -db is required")
	}
}

// loadEngine loads categorization rules from a file or the embedded set.
func loadEngine(rulesFile string, verbose bool) (*rules.Engine, error) {
	if rulesFile != "" {
		engine, err := rules.LoadFromFile(rulesFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load rules file: %w", err)
		}
		if verbose {
			fmt.Fprintf(os.Stderr, "Loaded %d custom rules from %s\n", len(engine.Rules()), rulesFile)
		}
		return engine, nil
	}
	engine, err := rules.LoadEmbedded()
	if err != nil {
		return nil, fmt.Errorf("failed to load embedded rules: %w", err)
	}
	if verbose {
		fmt.Fprintf(os.Stderr, "Loaded %d embedded rules\n", len(engine.Rules()))
	}
	return engine, nil
}

// collectInputs resolves -input to the statement files to process. A
// directory is scanned recursively; subdirectory names provide per-file
// bank hints unless an explicit -bank overrides them.
func collectInputs(input string, bank domain.Bank) ([]scanner.ScanResult, error) {
	info, err := os.Stat(input)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", input, err)
	}

	if !info.IsDir() {
		return []scanner.ScanResult{{Path: input, BankHint: bank}}, nil
	}

	files, err := scanner.New(input).Scan()
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no statement files found in %s (supported: .csv, .ofx, .qfx)", input)
	}
	if bank != domain.BankAuto {
		for i := range files {
			files[i].BankHint = bank
		}
	}
	return files, nil
}

// parseStatementFile reads and parses one statement file, routing OFX/QFX
// content to the OFX parser and everything else through layout detection.
func parseStatementFile(path string, bank domain.Bank, engine *rules.Engine) (*statement.Result, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}

	header := content
	if len(header) > 512 {
		header = header[:512]
	}
	if ofx.CanParse(path, header) {
		txns, err := ofx.NewParser(engine).Parse(bytes.NewReader(content))
		if err != nil {
			return nil, err
		}
		return &statement.Result{Bank: domain.BankOFX, Transactions: txns}, nil
	}

	return statement.NewParser(engine).Parse(string(content), bank)
}

func cmdParse(args []string) error {
	fs := flag.NewFlagSet("parse", flag.ExitOnError)
	input := fs.String("input", "", "Statement file to parse (required)")
	bank := fs.String("bank", "auto", "Bank layout: belfius, kbc, ing, bnp, fortis, generic, auto")
	rulesFile := fs.String("rules", "", "Category rules file (default: embedded rules)")
	verbose := fs.Bool("verbose", false, "Show per-row issues")
	fs.Parse(args)

	if *input == "" {
		return fmt.Errorf("-input flag is required")
	}

	engine, err := loadEngine(*rulesFile, *verbose)
	if err != nil {
		return err
	}

	ui.Header("Parsing Bank Statements")
	files, err := collectInputs(*input, domain.Bank(*bank))
	if err != nil {
		return err
	}

	for _, f := range files {
		result, err := parseStatementFile(f.Path, f.BankHint, engine)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Path, err)
		}

		ui.Success(fmt.Sprintf("%s: %d transactions (layout: %s)", f.Path, len(result.Transactions), result.Bank))
		printBatchReport(result, *verbose)

		for _, txn := range result.Transactions {
			fmt.Printf("%s  %9.2f  %-14s %s\n",
				txn.Date.Format("2006-01-02"), txn.Amount, txn.Category, txn.Description)
		}
	}
	return nil
}

func cmdImport(args []string) error {
	fs := flag.NewFlagSet("import", flag.ExitOnError)
	input := fs.String("input", "", "Statement file to import (required)")
	bank := fs.String("bank", "auto", "Bank layout: belfius, kbc, ing, bnp, fortis, generic, auto")
	rulesFile := fs.String("rules", "", "Category rules file (default: embedded rules)")
	user := fs.String("user", "", "Name recorded as the importing user (required)")
	dryRun := fs.Bool("dry-run", false, "Parse and validate without writing to the store")
	verbose := fs.Bool("verbose", false, "Show per-row issues")
	project, db := storeFlags(fs)
	fs.Parse(args)

	if *input == "" {
		return fmt.Errorf("-input flag is required")
	}
	if *user == "" {
		return fmt.Errorf("-user flag is required")
	}

	engine, err := loadEngine(*rulesFile, *verbose)
	if err != nil {
		return err
	}

	ui.Header("Importing Bank Statements")
	ui.Step(1, 3, "Parsing statements")
	files, err := collectInputs(*input, domain.Bank(*bank))
	if err != nil {
		return err
	}

	var txns []domain.Transaction
	var results []*statement.Result
	for _, f := range files {
		result, err := parseStatementFile(f.Path, f.BankHint, engine)
		if err != nil {
			return fmt.Errorf("%s: %w", f.Path, err)
		}
		ui.Success(fmt.Sprintf("%s: %d transactions (layout: %s)", f.Path, len(result.Transactions), result.Bank))
		printBatchReport(result, *verbose)
		txns = append(txns, result.Transactions...)
		results = append(results, result)
	}

	ui.Step(2, 3, "Validating batch")
	errorCount := 0
	for _, result := range results {
		report := validate.ValidateBatch(result)
		for _, w := range report.Warnings {
			ui.Warning(warningLine(w))
		}
		for _, e := range report.Errors {
			ui.Error(fmt.Sprintf("%s: %s", e.Field, e.Message))
		}
		errorCount += len(report.Errors)
	}
	if errorCount > 0 {
		return fmt.Errorf("validation failed with %d errors", errorCount)
	}
	ui.Success("Validation passed")

	if *dryRun {
		ui.Info(fmt.Sprintf("Dry run complete. Would import %d transactions.", len(txns)))
		return nil
	}

	ctx := context.Background()
	st, err := openStore(ctx, *project, *db)
	if err != nil {
		return err
	}
	defer st.Close()

	ui.Step(3, 3, "Writing to store")
	imported, err := importer.New(st).Import(ctx, txns, *user)
	if err != nil {
		return err
	}

	ui.Success(fmt.Sprintf("Imported %d of %d transactions (batch %s)",
		len(imported.Imported), imported.Total, imported.BatchID))
	if len(imported.Duplicates) > 0 {
		ui.Warning(fmt.Sprintf("Skipped %d duplicates", len(imported.Duplicates)))
		if *verbose {
			for _, d := range imported.Duplicates {
				fmt.Fprintf(os.Stderr, "  - %s %9.2f %s\n", d.Date.Format("2006-01-02"), d.Amount, d.Description)
			}
		}
	}
	if len(imported.Invalid) > 0 {
		ui.Warning(fmt.Sprintf("Rejected %d invalid transactions", len(imported.Invalid)))
		for _, inv := range imported.Invalid {
			fmt.Fprintf(os.Stderr, "  - %s: %v\n", inv.Transaction.Description, inv.Err)
		}
	}
	return nil
}

func cmdPayment(args []string) error {
	fs := flag.NewFlagSet("payment", flag.ExitOnError)
	id := fs.String("id", "", "Payment ID (required)")
	amount := fs.Float64("amount", 0, "Expected amount (required)")
	reference := fs.String("reference", "", "Structured reference to match on")
	member := fs.String("member", "", "Member name to match on")
	project, db := storeFlags(fs)
	fs.Parse(args)

	if *id == "" {
		return fmt.Errorf("-id flag is required")
	}
	if *amount <= 0 {
		return fmt.Errorf("-amount must be positive")
	}

	ctx := context.Background()
	st, err := openStore(ctx, *project, *db)
	if err != nil {
		return err
	}
	defer st.Close()

	payment := &domain.Payment{
		ID:         *id,
		Status:     domain.PaymentStatusPending,
		Amount:     *amount,
		Reference:  *reference,
		MemberName: *member,
		CreatedAt:  time.Now(),
	}
	if err := st.CreatePayment(ctx, payment); err != nil {
		return err
	}
	ui.Success(fmt.Sprintf("Registered pending payment %s (%.2f)", *id, *amount))
	return nil
}

func cmdReconcile(args []string) error {
	fs := flag.NewFlagSet("reconcile", flag.ExitOnError)
	project, db := storeFlags(fs)
	fs.Parse(args)

	ctx := context.Background()
	st, err := openStore(ctx, *project, *db)
	if err != nil {
		return err
	}
	defer st.Close()

	ui.Header("Reconciliation Candidates")
	matcher := reconcile.NewMatcher(st, st, st)
	matches, err := matcher.FindMatches(ctx)
	if err != nil {
		return err
	}

	if len(matches) == 0 {
		ui.Info("No matches above the confidence threshold")
		return nil
	}

	for _, m := range matches {
		fmt.Printf("%.2f  %s -> %s  %v\n", m.Confidence, m.TransactionID, m.PaymentID, m.Signals)
	}
	ui.Info(fmt.Sprintf("%d candidate matches. Confirm with: treasury confirm -transaction <id> -payment <id>", len(matches)))
	return nil
}

func cmdConfirm(args []string) error {
	fs := flag.NewFlagSet("confirm", flag.ExitOnError)
	transactionID := fs.String("transaction", "", "Transaction ID (required)")
	paymentID := fs.String("payment", "", "Payment ID (required)")
	project, db := storeFlags(fs)
	fs.Parse(args)

	if *transactionID == "" || *paymentID == "" {
		return fmt.Errorf("-transaction and -payment flags are required")
	}

	ctx := context.Background()
	st, err := openStore(ctx, *project, *db)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.ConfirmMatch(ctx, *transactionID, *paymentID); err != nil {
		return err
	}
	ui.Success(fmt.Sprintf("Confirmed %s against payment %s", *transactionID, *paymentID))
	return nil
}

func cmdExport(args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	output := fs.String("output", "", "Output CSV file (default: stdout)")
	project, db := storeFlags(fs)
	fs.Parse(args)

	ctx := context.Background()
	st, err := openStore(ctx, *project, *db)
	if err != nil {
		return err
	}
	defer st.Close()

	txns, err := st.AllTransactions(ctx)
	if err != nil {
		return err
	}

	if err := export.WriteCSVFile(txns, *output); err != nil {
		return err
	}
	if *output != "" {
		ui.Success(fmt.Sprintf("Exported %d transactions to %s", len(txns), *output))
	}
	return nil
}

func cmdServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", ":8080", "Listen address")
	rulesFile := fs.String("rules", "", "Category rules file (default: embedded rules)")
	project, db := storeFlags(fs)
	fs.Parse(args)

	engine, err := loadEngine(*rulesFile, false)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(ctx, *project, *db)
	if err != nil {
		return err
	}
	defer st.Close()

	srv := server.New(st, statement.NewParser(engine))
	ui.Header("Treasury API")
	ui.Info(fmt.Sprintf("Listening on %s", *addr))
	return http.ListenAndServe(*addr, srv.Handler())
}

// printBatchReport shows the parser's fallback and skip reports.
func printBatchReport(result *statement.Result, verbose bool) {
	if len(result.Fallbacks) > 0 {
		ui.Warning(fmt.Sprintf("%d fields used fallback values", len(result.Fallbacks)))
		if verbose {
			for _, fb := range result.Fallbacks {
				fmt.Fprintf(os.Stderr, "  - line %d, %s: %s\n", fb.Line, fb.Field, fb.Reason)
			}
		}
	}
	if len(result.Skipped) > 0 {
		ui.Warning(fmt.Sprintf("%d rows skipped", len(result.Skipped)))
		if verbose {
			for _, sk := range result.Skipped {
				fmt.Fprintf(os.Stderr, "  - line %d: %s\n", sk.Line, sk.Reason)
			}
		}
	}
}

func warningLine(w validate.ValidationWarning) string {
	if w.Line > 0 {
		return fmt.Sprintf("line %d: %s", w.Line, w.Message)
	}
	if w.Value != "" {
		return fmt.Sprintf("%s (%s)", w.Message, w.Value)
	}
	return w.Message
}
