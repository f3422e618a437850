package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nickyhof/MemDB"
	"github.com/nickyhof/MemDB/core"
	"github.com/nickyhof/MemDB/db"
	"github.com/nickyhof/MemDB/logging"
	"github.com/nickyhof/MemDB/ps"
)

var (
	promptStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	headingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#06B6D4")).Bold(true)
	bannerStyle  = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#06B6D4")).
			Foreground(lipgloss.Color("#06B6D4")).
			Bold(true).
			Width(39).
			Align(lipgloss.Center)
)

// Version is set at build time via -ldflags
var Version = "dev"

// CLI holds the CLI state
type CLI struct {
	engine      *db.Engine
	out         io.Writer
	history     []string
	historyFile string
}

func main() {
	baseDir := flag.String("baseDir", "", "Directory of the checkpoint repository (empty keeps everything in memory)")
	gitUrl := flag.String("gitUrl", "", "Git URL to clone the checkpoint repository from")
	sqlFile := flag.String("sqlFile", "", "SQL file to execute (non-interactive)")
	userName := flag.String("name", "MemDB", "User name for checkpoints")
	userEmail := flag.String("email", "cli@memdb.local", "User email for checkpoints")
	logLevel := flag.String("log-level", "WARN", "Log level: DEBUG, INFO, WARN or ERROR")
	logFormat := flag.String("log-format", "text", "Log format: text or json")
	logFile := flag.String("log-file", "", "Log file (empty logs to stderr)")
	flag.Parse()

	if err := logging.Init(logging.Config{
		Level:      logging.LogLevel(*logLevel),
		Format:     *logFormat,
		OutputPath: *logFile,
	}); err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}
	defer logging.Close()

	printBanner(os.Stdout)

	persistence, err := openPersistence(*baseDir, *gitUrl)
	if err != nil {
		fmt.Println(errorStyle.Render(fmt.Sprintf("Error: %v", err)))
		os.Exit(1)
	}

	engine := MemDB.Open(persistence).Engine(core.Identity{
		Name:  *userName,
		Email: *userEmail,
	})

	cli := &CLI{
		engine:      engine,
		out:         os.Stdout,
		historyFile: getHistoryPath(),
	}
	cli.loadHistory()

	if *sqlFile != "" {
		if err := cli.importFile(*sqlFile); err != nil {
			cli.printError(err)
			os.Exit(1)
		}
		return
	}

	cli.run(os.Stdin)
}

// openPersistence returns nil when no base directory is given.
func openPersistence(baseDir, gitUrl string) (*ps.Persistence, error) {
	if baseDir == "" {
		fmt.Println(successStyle.Render("Using memory storage, checkpoints disabled"))
		return nil, nil
	}
	fmt.Println(successStyle.Render("Using checkpoint repository: " + baseDir))
	var gitUrlPtr *string
	if gitUrl != "" {
		gitUrlPtr = &gitUrl
	}
	return ps.NewFilePersistence(baseDir, gitUrlPtr)
}

func printBanner(w io.Writer) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, bannerStyle.Render(fmt.Sprintf("MemDB v%s\nIn-memory SQL Query Engine", Version)))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Type .help for commands, .quit to exit")
	fmt.Fprintln(w)
}

func (cli *CLI) printError(err error) {
	fmt.Fprintln(cli.out, errorStyle.Render(fmt.Sprintf("✗ Error: %v", err)))
}

func (cli *CLI) printSuccess(format string, args ...any) {
	fmt.Fprintln(cli.out, successStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

func (cli *CLI) run(in io.Reader) {
	reader := bufio.NewReader(in)
	var multiLineBuffer strings.Builder

	for {
		fmt.Fprint(cli.out, cli.getPrompt(multiLineBuffer.Len() > 0))

		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Fprintln(cli.out)
			fmt.Fprintln(cli.out, successStyle.Render("Goodbye!"))
			cli.saveHistory()
			return
		}
		input = strings.TrimRight(input, "\r\n")
		if strings.TrimSpace(input) == "" {
			continue
		}

		// dot-commands are only recognised at the start of a statement
		if multiLineBuffer.Len() == 0 && strings.HasPrefix(input, ".") {
			if !cli.handleCommand(input) {
				cli.saveHistory()
				return
			}
			continue
		}

		// accumulate until the statement ends with a semicolon
		multiLineBuffer.WriteString(input)
		trimmed := strings.TrimSpace(multiLineBuffer.String())
		if !strings.HasSuffix(trimmed, ";") {
			multiLineBuffer.WriteString(" ")
			continue
		}
		multiLineBuffer.Reset()

		text := strings.TrimSpace(strings.TrimSuffix(trimmed, ";"))
		if text == "" {
			continue
		}
		cli.addToHistory(text + ";")
		cli.execute(text)
	}
}

func (cli *CLI) execute(text string) {
	result, err := cli.engine.Execute(text)
	if err != nil {
		cli.printError(err)
		return
	}
	result.Display(cli.out)
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return promptStyle.Render("   ...>") + " "
	}
	return promptStyle.Render("memdb>") + " "
}

// handleCommand runs a dot-command. It returns false when the CLI should exit.
func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(strings.TrimSpace(input))
	if len(parts) == 0 {
		return true
	}
	arg := strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(input), parts[0]))
	ctx := context.Background()

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		fmt.Fprintln(cli.out, successStyle.Render("Goodbye!"))
		return false

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".tables":
		cli.execute("SHOW TABLES")

	case ".describe":
		if arg == "" {
			cli.printError(fmt.Errorf("usage: .describe <table>"))
			break
		}
		cli.execute("DESCRIBE " + arg)

	case ".read":
		if arg == "" {
			cli.printError(fmt.Errorf("usage: .read <file.sql>"))
			break
		}
		if err := cli.importFile(arg); err != nil {
			cli.printError(err)
		}

	case ".export":
		if arg == "" {
			cli.printError(fmt.Errorf("usage: .export <path|s3://bucket/key>"))
			break
		}
		if err := cli.engine.ExportTo(ctx, arg, db.S3ConfigFromEnv()); err != nil {
			cli.printError(err)
			break
		}
		cli.printSuccess("Exported to %s", arg)

	case ".import":
		if arg == "" {
			cli.printError(fmt.Errorf("usage: .import <path|url|s3://bucket/key>"))
			break
		}
		if err := cli.engine.ImportFrom(ctx, arg, db.S3ConfigFromEnv()); err != nil {
			cli.printError(err)
			break
		}
		cli.printSuccess("Imported from %s", arg)

	case ".checkpoint":
		message := arg
		if message == "" {
			message = "checkpoint"
		}
		txn, err := cli.engine.Checkpoint(message)
		if err != nil {
			cli.printError(err)
			break
		}
		cli.printSuccess("Checkpoint %s", shortID(txn.Id))

	case ".restore":
		txn, err := cli.engine.Restore(arg)
		if err != nil {
			cli.printError(err)
			break
		}
		cli.printSuccess("Restored %s (%s)", shortID(txn.Id), txn.Message)

	case ".tag":
		if arg == "" {
			cli.printError(fmt.Errorf("usage: .tag <name>"))
			break
		}
		if err := cli.engine.Tag(arg); err != nil {
			cli.printError(err)
			break
		}
		cli.printSuccess("Tagged latest checkpoint as %s", arg)

	case ".log":
		cli.printLog()

	case ".branch":
		if arg == "" {
			cli.printBranches()
			break
		}
		if err := cli.engine.Branch(arg); err != nil {
			cli.printError(err)
			break
		}
		cli.printSuccess("Created branch %s", arg)

	case ".checkout":
		if arg == "" {
			cli.printError(fmt.Errorf("usage: .checkout <branch>"))
			break
		}
		txn, err := cli.engine.Checkout(arg)
		if err != nil {
			cli.printError(err)
			break
		}
		cli.printSuccess("Switched to %s at %s", arg, shortID(txn.Id))

	case ".remote":
		if len(parts) == 1 {
			cli.printRemotes()
			break
		}
		if len(parts) != 4 || strings.ToLower(parts[1]) != "add" {
			cli.printError(fmt.Errorf("usage: .remote add <name> <url>"))
			break
		}
		if err := cli.engine.AddRemote(parts[2], parts[3]); err != nil {
			cli.printError(err)
			break
		}
		cli.printSuccess("Added remote %s", parts[2])

	case ".push":
		if err := cli.engine.Push(arg, ps.RemoteAuthFromEnv()); err != nil {
			cli.printError(err)
			break
		}
		cli.printSuccess("Pushed checkpoints")

	case ".clear", ".cls":
		fmt.Fprint(cli.out, "\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Fprintf(cli.out, "MemDB version %s\n", Version)

	default:
		cli.printError(fmt.Errorf("unknown command: %s (type .help for commands)", parts[0]))
	}

	return true
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (cli *CLI) printHelp() {
	w := cli.out
	fmt.Fprintln(w)
	fmt.Fprintln(w, headingStyle.Render("Special Commands:"))
	fmt.Fprintln(w, "  .help, .h             Show this help message")
	fmt.Fprintln(w, "  .quit, .exit          Exit the CLI")
	fmt.Fprintln(w, "  .tables               List all tables")
	fmt.Fprintln(w, "  .describe <table>     Show the columns of a table")
	fmt.Fprintln(w, "  .read <file>          Execute SQL statements from a file")
	fmt.Fprintln(w, "  .export <url>         Write a snapshot to a file or s3:// URL")
	fmt.Fprintln(w, "  .import <url>         Load a snapshot from a file, http(s):// or s3:// URL")
	fmt.Fprintln(w, "  .checkpoint [msg]     Commit the catalog to the checkpoint repository")
	fmt.Fprintln(w, "  .restore [id|tag]     Restore a checkpoint (latest by default)")
	fmt.Fprintln(w, "  .tag <name>           Name the latest checkpoint")
	fmt.Fprintln(w, "  .log                  List checkpoints")
	fmt.Fprintln(w, "  .branch [name]        List branches or create one at the latest checkpoint")
	fmt.Fprintln(w, "  .checkout <branch>    Switch branch and restore its latest checkpoint")
	fmt.Fprintln(w, "  .remote [add n url]   List or add git remotes")
	fmt.Fprintln(w, "  .push [remote]        Push checkpoints (origin by default)")
	fmt.Fprintln(w, "  .history              Show command history")
	fmt.Fprintln(w, "  .clear                Clear the screen")
	fmt.Fprintln(w, "  .version              Show version info")
	fmt.Fprintln(w)
	fmt.Fprintln(w, headingStyle.Render("SQL Commands:"))
	fmt.Fprintln(w, "  CREATE TABLE [IF NOT EXISTS] <table> (<column> <type> [PRIMARY KEY] [DEFAULT v] [AUTO_INCREMENT], ...);")
	fmt.Fprintln(w, "  DROP TABLE [IF EXISTS] <table>;")
	fmt.Fprintln(w, "  INSERT INTO <table> [(<cols>)] VALUES (<vals>), ... | SELECT ...;")
	fmt.Fprintln(w, "  SELECT [DISTINCT] <exprs> FROM <tables> [WHERE ...] [GROUP BY ...] [HAVING ...]")
	fmt.Fprintln(w, "         [ORDER BY ...] [LIMIT n] [OFFSET m] [UNION SELECT ...];")
	fmt.Fprintln(w, "  UPDATE <table> SET <col>=<expr>, ... [WHERE ...];")
	fmt.Fprintln(w, "  DELETE FROM <table> [WHERE ...];")
	fmt.Fprintln(w, "  SHOW TABLES; DESCRIBE <table>;")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s SUM, AVG, MIN, MAX, COUNT, FIRST, LAST\n", headingStyle.Render("Aggregates:"))
	fmt.Fprintf(w, "%s SQRT, ABS, ROUND, UPPER, LOWER, LENGTH, CONCAT, COALESCE\n", headingStyle.Render("Functions:"))
	fmt.Fprintln(w)
}

func (cli *CLI) printLog() {
	history, err := cli.engine.History()
	if err != nil {
		cli.printError(err)
		return
	}
	if len(history) == 0 {
		fmt.Fprintln(cli.out, "No checkpoints")
		return
	}
	table := db.NewTable(cli.out)
	table.Header([]string{"ID", "When", "Author", "Message"})
	for _, txn := range history {
		table.Row([]string{shortID(txn.Id), txn.When.Format("2006-01-02 15:04:05"), txn.Author, txn.Message})
	}
	table.Render()
}

func (cli *CLI) printBranches() {
	branches, current, err := cli.engine.Branches()
	if err != nil {
		cli.printError(err)
		return
	}
	for _, branch := range branches {
		if branch == current {
			fmt.Fprintln(cli.out, successStyle.Render("* "+branch))
		} else {
			fmt.Fprintln(cli.out, "  "+branch)
		}
	}
}

func (cli *CLI) printRemotes() {
	remotes, err := cli.engine.Remotes()
	if err != nil {
		cli.printError(err)
		return
	}
	if len(remotes) == 0 {
		fmt.Fprintln(cli.out, "No remotes")
		return
	}
	for _, remote := range remotes {
		fmt.Fprintf(cli.out, "%s\t%s\n", remote.Name, strings.Join(remote.URLs, ", "))
	}
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	if len(cli.history) > 1000 {
		cli.history = cli.history[len(cli.history)-1000:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Fprintln(cli.out, "No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}
	for i := start; i < len(cli.history); i++ {
		fmt.Fprintf(cli.out, "  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".memdb_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}
	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}
	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	start := 0
	if len(cli.history) > 1000 {
		start = len(cli.history) - 1000
	}
	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// importFile reads and executes SQL statements from a file
func (cli *CLI) importFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	successCount, errorCount := 0, 0
	for i, stmt := range splitStatements(string(data)) {
		result, err := cli.engine.Execute(stmt)
		if err != nil {
			fmt.Fprintln(cli.out, errorStyle.Render(fmt.Sprintf("[%d] ✗ %s", i+1, truncate(stmt, 50))))
			fmt.Fprintf(cli.out, "      Error: %v\n", err)
			errorCount++
			continue
		}
		successCount++

		var detail string
		switch r := result.(type) {
		case db.MutationResult:
			detail = fmt.Sprintf(" (%d affected)", r.NumRows)
		case db.QueryResult:
			detail = fmt.Sprintf(" (%d rows)", r.RecordsRead)
		}
		fmt.Fprintln(cli.out, successStyle.Render(fmt.Sprintf("[%d] ✓ %s%s", i+1, truncate(stmt, 50), detail)))
	}

	fmt.Fprintln(cli.out)
	cli.printSuccess("Import complete: %d succeeded, %d failed", successCount, errorCount)
	return nil
}

// splitStatements splits SQL content into individual statements
func splitStatements(content string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	stringChar := byte(0)

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if (ch == '\'' || ch == '"' || ch == '`') && (i == 0 || content[i-1] != '\\') {
			if !inString {
				inString = true
				stringChar = ch
			} else if ch == stringChar {
				inString = false
			}
		}

		// line comments
		if !inString && ch == '-' && i+1 < len(content) && content[i+1] == '-' {
			for i < len(content) && content[i] != '\n' {
				i++
			}
			current.WriteByte(' ')
			continue
		}

		if !inString && ch == ';' {
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}
	return statements
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
