/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/lewtec/apontador/internal/repository"
	"github.com/spf13/cobra"
)

func PrintQuery(ctx context.Context, w io.Writer, db *sql.Tx, query string, args ...interface{}) error {
	stmt, err := db.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()
	result, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return err
	}
	defer result.Close()
	columns, err := result.Columns()
	if err != nil {
		return err
	}
	if len(columns) > 1 {
		fmt.Fprintln(w, strings.Join(columns, "\t"))
	}
	pointers := make([]interface{}, len(columns))
	container := make([]string, len(columns))
	for i := 0; i < len(columns); i++ {
		pointers[i] = &container[i]
	}
	for result.Next() {
		if err := result.Scan(pointers...); err != nil {
			return err
		}
		fmt.Fprintln(w, strings.Join(container, "\t"))
	}
	return result.Err()
}

// queryCmd represents the query command
var queryCmd = &cobra.Command{
	Use:   "query [flags] database [rater] [image]",
	Short: "Queries an annotation database",
	Long: `Query the clicks kept in a SQLite annotation database.

Examples:
  # Count the clicks of each rater
  apontador query annotations.db

  # List the clicks of a rater
  apontador query annotations.db nam

  # Show the click of a rater on one image
  apontador query annotations.db nam B`,
	Args: cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		if _, err := os.Stat(args[0]); err != nil {
			return fmt.Errorf("database not found: %w", err)
		}
		db, err := repository.Open(cmd.Context(), repository.DialectSQLite, args[0])
		if err != nil {
			return err
		}
		defer db.Close()

		tx, err := db.BeginTx(cmd.Context(), nil)
		if err != nil {
			return err
		}
		defer tx.Rollback()

		out := cmd.OutOrStdout()
		if len(args) < 2 {
			return PrintQuery(cmd.Context(), out, tx, "SELECT rater_id, COUNT(*) AS clicks FROM annotations GROUP BY rater_id ORDER BY rater_id")
		}

		query := "SELECT item_id AS name, click_x, click_y FROM annotations WHERE rater_id = ? "
		queryArgs := []interface{}{args[1]}
		if len(args) >= 3 {
			query += "AND item_id = ? "
			queryArgs = append(queryArgs, args[2])
		}
		query += "ORDER BY id"
		return PrintQuery(cmd.Context(), out, tx, query, queryArgs...)
	},
}

func init() {
	rootCmd.AddCommand(queryCmd)
}
