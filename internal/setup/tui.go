// Package setup provides the interactive configuration wizard.
package setup

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/lendo/config"
	"github.com/vadiminshakov/lendo/internal/domain"
	"gopkg.in/yaml.v3"
)

var (
	subtle    = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#383838"}
	highlight = lipgloss.AdaptiveColor{Light: "#874BFD", Dark: "#7D56F4"}
	special   = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}

	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("205")).
			Background(highlight).
			Padding(1, 2).
			Bold(true).
			MarginBottom(1)

	stepStyle = lipgloss.NewStyle().
			Foreground(special).
			Bold(true).
			MarginTop(1).
			MarginBottom(0)
)

// RunTUI launches the terminal configuration wizard and writes the resulting
// config to config.gen.yaml.
func RunTUI() error {
	var (
		rpcURL           string
		keyEnv           string
		depositStr       string
		safetyStr        string
		rateMode         string
		confirmationsStr string
		dashboardAddr    string
		confirm          bool
	)

	// defaults
	rpcURL = "http://127.0.0.1:8545"
	keyEnv = "LENDO_PRIVATE_KEY"
	depositStr = "0.1"
	safetyStr = "0.95"
	rateMode = domain.RateModeVariable.String()
	confirmationsStr = "1"

	fmt.Print("\033[H\033[2J") // Clear screen
	fmt.Println(headerStyle.Render("LENDO CONFIG WIZARD"))
	fmt.Println(lipgloss.NewStyle().Foreground(subtle).Render("Wrap, deposit, borrow, repay. Let's set it up.\n"))

	// node connection
	fmt.Println(stepStyle.Render("STEP 1: NODE"))
	err := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Node RPC URL").
				Description("HTTP endpoint of an Ethereum node or fork").
				Value(&rpcURL).
				Validate(func(s string) error {
					if s == "" {
						return fmt.Errorf("rpc url cannot be empty")
					}
					return nil
				}),
			huh.NewInput().
				Title("Private Key Env Var").
				Description("Name of the env variable holding the signing key").
				Value(&keyEnv),
		),
	).Run()
	if err != nil {
		return err
	}

	// run sizing
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("LENDO CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 2: SIZING"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Deposit Amount").
				Description("Native asset to wrap and deposit as collateral (e.g. 0.1)").
				Value(&depositStr).
				Validate(validatePositiveDecimal),
			huh.NewInput().
				Title("Safety Factor").
				Description("Fraction of available capacity to borrow, below 1 (e.g. 0.95)").
				Value(&safetyStr).
				Validate(validateSafetyFactor),
		),
	).Run()
	if err != nil {
		return err
	}

	// rate mode and confirmations
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("LENDO CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("STEP 3: EXECUTION"))
	err = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Interest Rate Mode").
				Options(
					huh.NewOption("Variable", domain.RateModeVariable.String()),
					huh.NewOption("Stable", domain.RateModeStable.String()),
				).
				Value(&rateMode),
			huh.NewInput().
				Title("Confirmations").
				Description("Blocks to wait per transaction (e.g. 1)").
				Value(&confirmationsStr).
				Validate(func(s string) error {
					n, err := strconv.ParseUint(s, 10, 64)
					if err != nil || n == 0 {
						return fmt.Errorf("must be a positive integer")
					}
					return nil
				}),
			huh.NewInput().
				Title("Dashboard Address").
				Description("Optional, e.g. :8088 (empty disables the dashboard)").
				Value(&dashboardAddr),
		),
	).Run()
	if err != nil {
		return err
	}

	// confirmation
	fmt.Print("\033[H\033[2J")
	fmt.Println(headerStyle.Render("LENDO CONFIG WIZARD"))
	fmt.Println(stepStyle.Render("FINAL CONFIRMATION"))

	summary := fmt.Sprintf(
		"RPC: %s\nKey env: %s\nDeposit: %s\nSafety factor: %s\nRate mode: %s\nConfirmations: %s\n",
		rpcURL, keyEnv, depositStr, safetyStr, rateMode, confirmationsStr,
	)
	fmt.Println(lipgloss.NewStyle().Border(lipgloss.NormalBorder()).Padding(1).Render(summary))

	err = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title("Save Configuration?").
				Affirmative("Yes, save").
				Negative("No, exit").
				Value(&confirm),
		),
	).Run()
	if err != nil {
		return err
	}

	if !confirm {
		return fmt.Errorf("setup cancelled by user")
	}

	confirmations, _ := strconv.ParseUint(confirmationsStr, 10, 64)
	cfgTmp := config.ConfigTmp{
		RPCURL:        rpcURL,
		KeyEnv:        keyEnv,
		DepositAmount: depositStr,
		SafetyFactor:  safetyStr,
		RateMode:      rateMode,
		Confirmations: confirmations,
		DashboardAddr: dashboardAddr,
	}

	data, err := yaml.Marshal(cfgTmp)
	if err != nil {
		return fmt.Errorf("failed to generate yaml: %w", err)
	}

	filename := "config.gen.yaml"
	if err := os.WriteFile(filename, data, 0644); err != nil {
		return fmt.Errorf("failed to save config file: %w", err)
	}

	fmt.Println(lipgloss.NewStyle().Foreground(special).Render(fmt.Sprintf("\n✓ Configuration saved to %s", filename)))
	time.Sleep(1500 * time.Millisecond) // small pause to read success message
	return nil
}

func validatePositiveDecimal(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.LessThanOrEqual(decimal.Zero) {
		return fmt.Errorf("must be positive")
	}
	return nil
}

func validateSafetyFactor(s string) error {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("must be a valid number")
	}
	if d.LessThanOrEqual(decimal.Zero) || d.GreaterThanOrEqual(decimal.New(1, 0)) {
		return fmt.Errorf("must be strictly between 0 and 1")
	}
	return nil
}
