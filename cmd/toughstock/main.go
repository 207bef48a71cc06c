package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/pkg/errors"
	"github.com/talkincode/toughstock/config"
	"github.com/talkincode/toughstock/internal/adminapi"
	"github.com/talkincode/toughstock/internal/app"
	"github.com/talkincode/toughstock/internal/chat"
	"github.com/talkincode/toughstock/internal/webserver"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

var version = "develop"

type options struct {
	conffile string
	initdb   bool
	backup   bool
	export   string
	xlsx     string
	report   string
	imports  string
	summary  bool
	chat     bool
	username string
	password string
	showVer  bool
}

func parseFlags(args []string, stderr io.Writer) (*options, error) {
	fs := flag.NewFlagSet("toughstock", flag.ContinueOnError)
	fs.SetOutput(stderr)
	o := &options{}
	fs.StringVar(&o.conffile, "c", "", "config yml file")
	fs.BoolVar(&o.initdb, "initdb", false, "create missing tables and reset the default admin, then exit")
	fs.BoolVar(&o.backup, "backup", false, "snapshot the database file, then exit")
	fs.StringVar(&o.export, "export", "", "export products as semicolon separated text to file")
	fs.StringVar(&o.xlsx, "xlsx", "", "export products as a workbook to file")
	fs.StringVar(&o.report, "report", "", "write the pdf stock report to file")
	fs.StringVar(&o.imports, "import", "", "import products from a semicolon separated file")
	fs.BoolVar(&o.summary, "summary", false, "print the stock summary as json")
	fs.BoolVar(&o.chat, "chat", false, "start the guided command console")
	fs.StringVar(&o.username, "u", "", "console username")
	fs.StringVar(&o.password, "p", "", "console password")
	fs.BoolVar(&o.showVer, "v", false, "show version")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return o, nil
}

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	o, err := parseFlags(args, stderr)
	if err != nil {
		return err
	}
	if o.showVer {
		fmt.Fprintln(stdout, version)
		return nil
	}

	cfg, err := config.LoadConfig(o.conffile)
	if err != nil {
		return err
	}
	application := app.NewApplication(cfg)
	if err := application.Init(cfg); err != nil {
		return err
	}
	defer application.Release()

	ctx := context.Background()
	switch {
	case o.initdb:
		return application.InitDb()
	case o.backup:
		file, err := application.Backup()
		if err != nil {
			return err
		}
		if file == "" {
			fmt.Fprintln(stdout, "no backup written")
		} else {
			fmt.Fprintln(stdout, file)
		}
		return nil
	case o.export != "":
		text, err := application.Ledger().ExportAllAsDelimitedText(ctx)
		if err != nil {
			return err
		}
		return writeOutput(o.export, []byte(text))
	case o.xlsx != "":
		data, err := application.Ledger().ExportWorkbook(ctx)
		if err != nil {
			return err
		}
		return writeOutput(o.xlsx, data)
	case o.report != "":
		data, err := application.Ledger().GenerateStockReport(ctx)
		if err != nil {
			return err
		}
		return writeOutput(o.report, data)
	case o.imports != "":
		data, err := os.ReadFile(o.imports)
		if err != nil {
			return errors.Wrap(err, "read import file")
		}
		n, err := application.Ledger().ImportFromDelimitedText(ctx, string(data))
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%d product(s) imported\n", n)
		return nil
	case o.summary:
		s, err := application.Ledger().Summary(ctx, cfg.Stock.LowStockThreshold)
		if err != nil {
			return err
		}
		enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	case o.chat:
		return runConsole(ctx, application, o.username, o.password, stdin, stdout)
	}
	return serve(application)
}

func writeOutput(file string, data []byte) error {
	if err := os.WriteFile(file, data, 0o644); err != nil {
		return errors.Wrap(err, "write output")
	}
	return nil
}

// runConsole reads commands line by line until EOF or "sair".
func runConsole(ctx context.Context, application *app.Application, username, password string, stdin io.Reader, stdout io.Writer) error {
	user, err := application.Accounts().Authenticate(ctx, username, password)
	if err != nil {
		return err
	}
	if user == nil {
		return errors.New("invalid username or password")
	}
	interp := chat.NewInterpreter(application.Ledger(), application.Config().Stock.ListLimit)
	sess := chat.NewSession(user.Username)
	fmt.Fprintf(stdout, "Olá, %s! Digite \"ajuda\" para ver os comandos.\n> ", user.Username)
	scanner := bufio.NewScanner(stdin)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.EqualFold(strings.TrimSpace(line), "sair") {
			break
		}
		fmt.Fprintf(stdout, "%s\n> ", interp.Handle(ctx, sess, line))
	}
	fmt.Fprintln(stdout)
	return scanner.Err()
}

func serve(application *app.Application) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	application.StartJobs(ctx)
	adminapi.Init()
	srv := webserver.NewAdminServer(application)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(srv.Start)
	g.Go(func() error {
		<-gctx.Done()
		zap.L().Info("shutting down admin server", zap.String("namespace", "web"))
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
