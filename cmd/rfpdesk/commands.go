package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kalambet/rfpdesk/internal/api"
	"github.com/kalambet/rfpdesk/internal/config"
	"github.com/kalambet/rfpdesk/internal/format"
	"github.com/kalambet/rfpdesk/internal/model"
	"github.com/kalambet/rfpdesk/internal/storage"
)

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// --- dashboard ---

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Show pipeline KPIs and urgent RFPs",
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var d api.DashboardView
		if err := client.getJSON(cmd.Context(), "/dashboard", &d); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			return printJSON(out, d)
		}

		fmt.Fprintln(out, colorize(colorBold, "Pipeline"))
		fmt.Fprintf(out, "  Active RFPs        %d\n", d.KPIs.TotalActiveRFPs)
		fmt.Fprintf(out, "  Near deadline      %d\n", d.KPIs.RFPsNearDeadline)
		fmt.Fprintf(out, "  Pending approvals  %d\n", d.KPIs.ApprovalPendingCount)
		fmt.Fprintf(out, "  Avg response       %.1f days\n", d.KPIs.AvgResponseDays)
		fmt.Fprintf(out, "  Win rate           %s\n", format.Percent(d.KPIs.WinRate))
		fmt.Fprintf(out, "  Pipeline value     %s\n", d.PipelineValueDisplay)

		fmt.Fprintln(out)
		fmt.Fprintln(out, colorize(colorBold, "Stages"))
		for _, s := range d.StatusDistribution {
			fmt.Fprintf(out, "  %-18s %d\n", s.Label, s.Count)
		}

		fmt.Fprintln(out)
		fmt.Fprintln(out, colorize(colorBold, "Urgent"))
		if len(d.UrgentRFPs) == 0 {
			fmt.Fprintln(out, "  No RFPs near their deadline.")
			return nil
		}
		for _, r := range d.UrgentRFPs {
			fmt.Fprintf(out, "  %s  %s  %s  %s\n",
				colorize(colorCyan, r.ID),
				colorize(urgencyColor(r.UrgencyBucket), fmt.Sprintf("%d days", r.DaysUntil)),
				r.StageLabel,
				truncate(r.Title, 50),
			)
		}
		return nil
	},
}

func init() {
	dashboardCmd.Flags().Bool("json", false, "print the raw JSON response")
}

// --- rfps ---

var rfpsCmd = &cobra.Command{
	Use:   "rfps",
	Short: "Browse the RFP pipeline",
}

var rfpsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List RFPs, optionally filtered",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		stage, _ := cmd.Flags().GetString("stage")
		if stage != "" && !model.Stage(stage).Valid() {
			return fmt.Errorf("unknown stage %q", stage)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		params := url.Values{}
		if query != "" {
			params.Set("q", query)
		}
		if stage != "" {
			params.Set("stage", stage)
		}
		path := "/rfps"
		if len(params) > 0 {
			path += "?" + params.Encode()
		}

		var list api.RFPList
		if err := client.getJSON(cmd.Context(), path, &list); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(list.RFPs) == 0 {
			fmt.Fprintln(out, "No RFPs found.")
			return nil
		}
		for _, r := range list.RFPs {
			fmt.Fprintf(out, "%s  %-16s  %-10s  %4dd  %s  %s\n",
				colorize(colorCyan, r.ID),
				r.StageLabel,
				r.ValueDisplay,
				r.DaysUntil,
				colorize(urgencyColor(r.UrgencyBucket), r.UrgencyBucket.Label()),
				truncate(r.ClientName+": "+r.Title, 60),
			)
		}
		fmt.Fprintf(out, "\n%d RFPs, %s total\n", len(list.RFPs), list.ValueDisplay)
		return nil
	},
}

var rfpsShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one RFP with its activity and validation items",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		asJSON, _ := cmd.Flags().GetBool("json")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var d api.RFPDetail
		if err := client.getJSON(cmd.Context(), "/rfps/"+url.PathEscape(args[0]), &d); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if asJSON {
			return printJSON(out, d)
		}

		r := d.RFP
		fmt.Fprintf(out, "%s  %s\n", colorize(colorBold, r.ID), r.Title)
		fmt.Fprintf(out, "  Client    %s (%s)\n", r.ClientName, r.ClientType)
		fmt.Fprintf(out, "  Owner     %s\n", r.AssignedOwner)
		fmt.Fprintf(out, "  Stage     %s (%d%%)\n", r.StageLabel, r.Progress)
		fmt.Fprintf(out, "  Deadline  %s, %s\n", r.DeadlineDisplay,
			colorize(urgencyColor(r.UrgencyBucket), fmt.Sprintf("%d days", r.DaysUntil)))
		fmt.Fprintf(out, "  Value     %s\n", r.ValueDisplay)
		fmt.Fprintf(out, "  Margin    %s to %s\n", format.Percent(r.MarginRange.Low()), format.Percent(r.MarginRange.High()))
		fmt.Fprintf(out, "  BOQ lines %d\n", r.BOQLineCount)

		if len(d.Items) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, colorize(colorBold, "Validation"))
			for _, it := range d.Items {
				fmt.Fprintf(out, "  %s  %-8s  %s\n", it.ID, it.StatusLabel, it.Description)
			}
		}
		if len(d.Activity) > 0 {
			fmt.Fprintln(out)
			fmt.Fprintln(out, colorize(colorBold, "Activity"))
			for _, a := range d.Activity {
				fmt.Fprintf(out, "  %s  %s  %s\n", a.Timestamp.Format(time.DateTime), a.Actor, a.Action)
			}
		}
		return nil
	},
}

func init() {
	rfpsListCmd.Flags().String("query", "", "search id, client and title")
	rfpsListCmd.Flags().String("stage", "", "filter by pipeline stage")
	rfpsShowCmd.Flags().Bool("json", false, "print the raw JSON response")
	rfpsCmd.AddCommand(rfpsListCmd)
	rfpsCmd.AddCommand(rfpsShowCmd)
}

// --- validation ---

var validationCmd = &cobra.Command{
	Use:   "validation",
	Short: "Review items flagged for human validation",
}

var validationListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the validation queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var q api.QueueView
		if err := client.getJSON(cmd.Context(), "/validation", &q); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d pending, %d approved, %d rejected\n",
			q.Summary.Pending, q.Summary.Approved, q.Summary.Rejected)
		printItems(out, "Pending", q.Pending, colorYellow)
		printItems(out, "Approved", q.Approved, colorGreen)
		printItems(out, "Rejected", q.Rejected, colorRed)
		return nil
	},
}

func printItems(out io.Writer, title string, items []api.ItemView, color string) {
	if len(items) == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, colorize(color, title))
	for _, it := range items {
		fmt.Fprintf(out, "  %s  %s  %3d%%  %s\n", colorize(colorCyan, it.ID), it.RFPID, it.AgentConfidence, it.Description)
		if it.ReasonFlagged != "" {
			fmt.Fprintf(out, "      %s\n", it.ReasonFlagged)
		}
	}
}

var validationApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending validation item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reviewer, _ := cmd.Flags().GetString("reviewer")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/validation/"+url.PathEscape(args[0])+"/approve", map[string]string{
			"reviewer": reviewer,
		})
		if err != nil {
			return err
		}
		var item api.ItemView
		if err := decodeJSON(resp, &item); err != nil {
			return err
		}

		printSuccess("Approved %s: %s", item.ID, item.Description)
		return nil
	},
}

var validationRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending validation item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		reason, _ := cmd.Flags().GetString("reason")
		reviewer, _ := cmd.Flags().GetString("reviewer")
		if strings.TrimSpace(reason) == "" {
			return fmt.Errorf("--reason is required to reject an item")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/validation/"+url.PathEscape(args[0])+"/reject", map[string]string{
			"reason":   reason,
			"reviewer": reviewer,
		})
		if err != nil {
			return err
		}
		var item api.ItemView
		if err := decodeJSON(resp, &item); err != nil {
			return err
		}

		printSuccess("Rejected %s: %s", item.ID, item.Description)
		return nil
	},
}

var validationHistoryCmd = &cobra.Command{
	Use:   "history <id>",
	Short: "Show every decision recorded for a validation item",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var hist []storage.ReviewDecision
		if err := client.getJSON(cmd.Context(), "/validation/"+url.PathEscape(args[0])+"/history", &hist); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(hist) == 0 {
			fmt.Fprintln(out, "No decisions recorded.")
			return nil
		}
		printDecisions(out, hist)
		return nil
	},
}

func printDecisions(out io.Writer, decisions []storage.ReviewDecision) {
	for _, d := range decisions {
		reviewer := d.Reviewer
		if reviewer == "" {
			reviewer = "-"
		}
		line := fmt.Sprintf("%s  %s  %-8s  %s", d.DecidedAt.Format(time.DateTime), d.ItemID, d.Decision, reviewer)
		if d.Reason != "" {
			line += "  " + d.Reason
		}
		fmt.Fprintln(out, line)
	}
}

func init() {
	validationApproveCmd.Flags().String("reviewer", "", "name recorded as the reviewer")
	validationRejectCmd.Flags().String("reason", "", "why the item is rejected (required)")
	validationRejectCmd.Flags().String("reviewer", "", "name recorded as the reviewer")
	validationCmd.AddCommand(validationListCmd)
	validationCmd.AddCommand(validationApproveCmd)
	validationCmd.AddCommand(validationRejectCmd)
	validationCmd.AddCommand(validationHistoryCmd)
}

// --- reviews ---

var reviewsCmd = &cobra.Command{
	Use:   "reviews",
	Short: "List recent review decisions, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")
		offset, _ := cmd.Flags().GetInt("offset")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var decisions []storage.ReviewDecision
		path := fmt.Sprintf("/reviews?limit=%d&offset=%d", limit, offset)
		if err := client.getJSON(cmd.Context(), path, &decisions); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(decisions) == 0 {
			fmt.Fprintln(out, "No review decisions found.")
			return nil
		}
		printDecisions(out, decisions)
		return nil
	},
}

func init() {
	reviewsCmd.Flags().Int("limit", 20, "maximum number of decisions to list")
	reviewsCmd.Flags().Int("offset", 0, "number of decisions to skip")
}

// --- documents ---

var documentsCmd = &cobra.Command{
	Use:   "documents",
	Short: "Browse generated documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		query, _ := cmd.Flags().GetString("query")
		typ, _ := cmd.Flags().GetString("type")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		params := url.Values{}
		if query != "" {
			params.Set("q", query)
		}
		if typ != "" {
			params.Set("type", typ)
		}
		path := "/documents"
		if len(params) > 0 {
			path += "?" + params.Encode()
		}

		var list api.DocumentList
		if err := client.getJSON(cmd.Context(), path, &list); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(list.Documents) == 0 {
			fmt.Fprintln(out, "No documents found.")
			return nil
		}
		for _, d := range list.Documents {
			fmt.Fprintf(out, "%s  %s  v%d  %-8s  %s\n",
				colorize(colorCyan, d.ID), d.RFPID, d.Version, d.StatusLabel, d.FileName)
		}
		return nil
	},
}

var documentsDownloadCmd = &cobra.Command{
	Use:   "download <id>",
	Short: "Request a document download",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/documents/"+url.PathEscape(args[0])+"/download", nil)
		if err != nil {
			return err
		}
		var dl api.DownloadView
		if err := decodeJSON(resp, &dl); err != nil {
			return err
		}

		printSuccess("Downloading %s", dl.Document.FileName)
		return nil
	},
}

func init() {
	documentsListCmd.Flags().String("query", "", "search document names")
	documentsListCmd.Flags().String("type", "", "filter by document type")
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsDownloadCmd)
}

// --- alerts ---

var alertsCmd = &cobra.Command{
	Use:   "alerts",
	Short: "Show active alerts",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		var alerts []model.Alert
		if err := client.getJSON(cmd.Context(), "/alerts", &alerts); err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if len(alerts) == 0 {
			fmt.Fprintln(out, "No active alerts.")
			return nil
		}
		now := time.Now()
		for _, a := range alerts {
			fmt.Fprintf(out, "%s  %s  (%s)\n",
				colorize(alertColor(a.Type), a.Title),
				a.Description,
				format.Relative(a.CreatedAt, now),
			)
		}
		return nil
	},
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		for _, k := range config.ShowAll(cfg) {
			fmt.Fprintf(out, "  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Long: "Set a configuration value in the config file.\n\nValid keys: " +
		strings.Join(config.ValidKeys(), ", "),
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
