// Package main is the docx2pdf command-line client for the conversion server.
package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"docconvert/internal/client"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the docx2pdf CLI.
var rootCmd = &cobra.Command{
	Use:   "docx2pdf",
	Short: "Convert Word documents to PDF through a docconvert server",
	Long: `docx2pdf uploads a .docx document to a docconvert server and saves the
PDF it returns. The server endpoint comes from --server, the DOCX2PDF_SERVER
environment variable, or the server key of the config file.`,
	SilenceUsage: true,
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./docx2pdf.yaml or ~/.config/docx2pdf/config.yaml)")
	rootCmd.PersistentFlags().String("server", client.DefaultEndpoint, "conversion endpoint")
	rootCmd.PersistentFlags().Duration("timeout", 5*time.Minute, "request timeout")

	_ = viper.BindPFlag("server", rootCmd.PersistentFlags().Lookup("server"))
	_ = viper.BindPFlag("timeout", rootCmd.PersistentFlags().Lookup("timeout"))
}

func initConfig() {
	_ = godotenv.Load()

	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("docx2pdf")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "docx2pdf"))
		}
	}

	viper.SetEnvPrefix("DOCX2PDF")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// newBackend builds a backend from the resolved settings.
func newBackend() *client.Backend {
	return client.NewBackend(viper.GetString("server"), &http.Client{
		Timeout: viper.GetDuration("timeout"),
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
