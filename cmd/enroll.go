package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kozaktomas/spyhole/internal/accounts"
	"github.com/kozaktomas/spyhole/internal/database"
	"github.com/kozaktomas/spyhole/internal/enrollment"
	"github.com/kozaktomas/spyhole/internal/logging"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <label> <image>",
	Short: "Enroll a face into the known faces directory",
	Long: `Extract the face from an image and store it as the reference photo of label.
An existing reference photo of the same label is overwritten.
With --password an account is registered for the label as well. The label must
then be new, and the photo is removed again if the account cannot be created.`,
	Args: cobra.ExactArgs(2),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)

	enrollCmd.Flags().String("password", "", "Also register a dashboard account with this password")
	enrollCmd.Flags().String("role", database.RoleUser, "Role of the registered account (user, guest, admin)")
}

func runEnroll(cmd *cobra.Command, args []string) error {
	label, imagePath := args[0], args[1]
	password := mustGetString(cmd, "password")

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	data, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("reading image: %w", err)
	}

	ctx := context.Background()

	var (
		acctSvc *accounts.Service
		checker enrollment.AccountChecker
		req     accounts.RegisterRequest
	)
	if password != "" {
		store, err := database.Open(ctx, &cfg.Database)
		if err != nil {
			return fmt.Errorf("opening database: %w", err)
		}
		defer func() { _ = store.Close() }()

		acctSvc = accounts.NewService(store.Accounts())
		req = accounts.RegisterRequest{Username: label, Password: password, Role: mustGetString(cmd, "role")}
		if err := acctSvc.Validate(&req); err != nil {
			return err
		}
		checker = store.Accounts()
	}

	svc, err := newMonitor(ctx, cfg, nil, logger, checker)
	if err != nil {
		return err
	}
	defer func() { _ = svc.Close() }()

	res := svc.EnrollIdentity(ctx, label, filepath.Base(imagePath), data)
	if !res.Success {
		return errors.New(res.Message)
	}

	fmt.Printf("Enrolled %s as %s\n", res.Label, filepath.Join(cfg.Storage.KnownDir, res.Filename))

	if acctSvc == nil {
		return nil
	}
	req.FaceFilename = res.Filename
	acc, err := acctSvc.Register(ctx, req)
	if err != nil {
		if uerr := svc.UnenrollIdentity(res); uerr != nil {
			logger.Error("account creation failed and the enrolled face could not be removed",
				zap.String("label", res.Label), zap.Error(uerr))
		}
		return fmt.Errorf("registering account: %w", err)
	}
	fmt.Printf("Registered account %s (%s)\n", acc.Username, acc.Role)
	return nil
}
