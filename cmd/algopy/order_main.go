package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/algopy/algopy/internal/oms"
)

const (
	orderTimeout = 30 * time.Second
	batchTimeout = 2 * time.Minute
)

func newOrderCmd() *cobra.Command {
	orderCmd := &cobra.Command{
		Use:   "order",
		Short: "Place, close and cancel orders",
	}

	placeCmd := &cobra.Command{
		Use:   "place",
		Short: "Place a futures or spot order",
		RunE:  runOrderPlace,
	}
	placeCmd.Flags().String("symbol", "", "Market symbol, e.g. BTCUSDT (required)")
	placeCmd.Flags().String("side", "BUY", "Order side (BUY|SELL)")
	placeCmd.Flags().Float64("qty", 0, "Quantity in contracts")
	placeCmd.Flags().Float64("usd", 0, "Quantity in USD, converted at mark price")
	placeCmd.Flags().Float64("price", 0, "Limit price; omit for market orders")
	placeCmd.Flags().Bool("reduce-only", false, "Reduce-only order")
	placeCmd.Flags().Bool("spot", false, "Route to the spot market instead of futures")
	placeCmd.Flags().Int("leverage", 0, "Set leverage before placing (futures only)")

	closeCmd := &cobra.Command{
		Use:   "close",
		Short: "Close open futures positions with reduce-only market orders",
		RunE:  runOrderClose,
	}
	closeCmd.Flags().String("symbol", "", "Close only this symbol; omit for all")
	closeCmd.Flags().Float64("percent", 0, "Close this percent of the open size")
	closeCmd.Flags().Float64("qty", 0, "Close this many contracts")
	closeCmd.Flags().Float64("usd", 0, "Close this much USD notional")

	cancelCmd := &cobra.Command{
		Use:   "cancel",
		Short: "Cancel open orders",
		RunE:  runOrderCancel,
	}
	cancelCmd.Flags().String("symbol", "", "Market symbol (required)")
	cancelCmd.Flags().String("order-id", "", "Cancel a single order by ID")
	cancelCmd.Flags().Bool("all", false, "Cancel every open order for the symbol")

	positionsCmd := &cobra.Command{
		Use:   "positions",
		Short: "Show open futures positions",
		RunE:  runOrderPositions,
	}

	balancesCmd := &cobra.Command{
		Use:   "balances",
		Short: "Show nonzero futures balances",
		RunE:  runOrderBalances,
	}
	balancesCmd.Flags().String("asset", "", "Show only this asset")

	batchCmd := &cobra.Command{
		Use:   "batch",
		Short: "Submit a file of orders through a bounded worker pool",
		RunE:  runOrderBatch,
	}
	batchCmd.Flags().String("file", "", "Path to a JSON array or CSV of orders (required)")
	batchCmd.Flags().Int("workers", 4, "Concurrent submissions")
	batchCmd.Flags().Bool("spot", false, "Route to the spot market instead of futures")

	orderCmd.AddCommand(placeCmd, closeCmd, cancelCmd, positionsCmd, balancesCmd, batchCmd)
	return orderCmd
}

func runOrderPlace(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	client, err := env.newOMS()
	if err != nil {
		return err
	}

	symbol, _ := cmd.Flags().GetString("symbol")
	side, _ := cmd.Flags().GetString("side")
	qty, _ := cmd.Flags().GetFloat64("qty")
	usd, _ := cmd.Flags().GetFloat64("usd")
	price, _ := cmd.Flags().GetFloat64("price")
	reduceOnly, _ := cmd.Flags().GetBool("reduce-only")
	spot, _ := cmd.Flags().GetBool("spot")
	leverage, _ := cmd.Flags().GetInt("leverage")

	if symbol == "" {
		return fmt.Errorf("--symbol is required")
	}
	if qty <= 0 && usd <= 0 {
		return fmt.Errorf("one of --qty or --usd is required")
	}
	if qty > 0 && usd > 0 {
		return fmt.Errorf("--qty and --usd are mutually exclusive")
	}

	req := oms.OrderRequest{
		Symbol:     strings.ToUpper(symbol),
		Side:       oms.Side(strings.ToUpper(side)),
		Qty:        qty,
		Price:      price,
		Type:       oms.Market,
		Unit:       oms.Contracts,
		ReduceOnly: reduceOnly,
	}
	if price > 0 {
		req.Type = oms.Limit
	}
	if usd > 0 {
		req.Qty = usd
		req.Unit = oms.USD
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), orderTimeout)
	defer cancel()

	if leverage > 0 && !spot {
		if err := client.ChangeLeverage(ctx, req.Symbol, leverage); err != nil {
			return err
		}
	}

	var order *oms.Order
	if spot {
		order, err = client.PlaceOrder(ctx, req)
	} else {
		order, err = client.PlaceFuturesOrder(ctx, req)
	}
	if err != nil {
		return err
	}

	printf("accepted %s %s %s qty=%v id=%s status=%s",
		order.Side, order.Type, order.Symbol, order.Qty, order.OrderID, order.Status)
	return nil
}

func runOrderBatch(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	client, err := env.newOMS()
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("file")
	workers, _ := cmd.Flags().GetInt("workers")
	spot, _ := cmd.Flags().GetBool("spot")

	if path == "" {
		return fmt.Errorf("--file is required")
	}
	requests, err := readOrderFile(path)
	if err != nil {
		return err
	}
	if len(requests) == 0 {
		return fmt.Errorf("no orders in %s", path)
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), batchTimeout)
	defer cancel()

	orders, err := oms.NewBatchSubmitter(client, workers, !spot).Submit(ctx, requests)
	for _, o := range orders {
		printf("accepted %s %s %s qty=%v id=%s status=%s",
			o.Side, o.Type, o.Symbol, o.Qty, o.OrderID, o.Status)
	}
	printf("batch: %d of %d accepted", len(orders), len(requests))
	return err
}

// readOrderFile parses a JSON array of order requests, or a CSV with a
// header row naming at least symbol, side and qty.
func readOrderFile(path string) ([]oms.OrderRequest, error) {
	payload, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read order file: %w", err)
	}

	var requests []oms.OrderRequest
	if bytes.HasPrefix(bytes.TrimSpace(payload), []byte("[")) {
		if err := json.Unmarshal(payload, &requests); err != nil {
			return nil, fmt.Errorf("failed to parse order file: %w", err)
		}
	} else if requests, err = parseOrderCSV(payload); err != nil {
		return nil, err
	}

	for i := range requests {
		if err := normalizeOrder(&requests[i]); err != nil {
			return nil, fmt.Errorf("order %d: %w", i+1, err)
		}
	}
	return requests, nil
}

func parseOrderCSV(payload []byte) ([]oms.OrderRequest, error) {
	rows, err := csv.NewReader(bytes.NewReader(payload)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse order CSV: %w", err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("order CSV needs a header row and at least one order")
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[strings.ToLower(strings.TrimSpace(name))] = i
	}
	for _, name := range []string{"symbol", "side", "qty"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("order CSV is missing the %q column", name)
		}
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	requests := make([]oms.OrderRequest, 0, len(rows)-1)
	for n, row := range rows[1:] {
		req := oms.OrderRequest{
			Symbol: field(row, "symbol"),
			Side:   oms.Side(field(row, "side")),
			Type:   oms.OrderType(strings.ToUpper(field(row, "type"))),
		}
		if req.Qty, err = strconv.ParseFloat(field(row, "qty"), 64); err != nil {
			return nil, fmt.Errorf("order CSV row %d: invalid qty %q", n+1, field(row, "qty"))
		}
		if v := field(row, "price"); v != "" {
			if req.Price, err = strconv.ParseFloat(v, 64); err != nil {
				return nil, fmt.Errorf("order CSV row %d: invalid price %q", n+1, v)
			}
		}
		if strings.EqualFold(field(row, "unit"), "usd") {
			req.Unit = oms.USD
		}
		if strings.EqualFold(field(row, "reduce_only"), "true") {
			req.ReduceOnly = true
		}
		requests = append(requests, req)
	}
	return requests, nil
}

func normalizeOrder(req *oms.OrderRequest) error {
	req.Symbol = strings.ToUpper(strings.TrimSpace(req.Symbol))
	req.Side = oms.Side(strings.ToUpper(strings.TrimSpace(string(req.Side))))

	if req.Symbol == "" {
		return fmt.Errorf("symbol is required")
	}
	if req.Side != oms.Buy && req.Side != oms.Sell {
		return fmt.Errorf("invalid side %q", req.Side)
	}
	if req.Qty <= 0 {
		return fmt.Errorf("qty must be positive")
	}
	if req.Price > 0 {
		req.Type = oms.Limit
	} else if req.Type == "" {
		req.Type = oms.Market
	}
	if req.Unit == "" {
		req.Unit = oms.Contracts
	}
	return nil
}

func runOrderClose(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	client, err := env.newOMS()
	if err != nil {
		return err
	}

	symbol, _ := cmd.Flags().GetString("symbol")
	percent, _ := cmd.Flags().GetFloat64("percent")
	qty, _ := cmd.Flags().GetFloat64("qty")
	usd, _ := cmd.Flags().GetFloat64("usd")

	req := oms.CloseRequest{Symbol: strings.ToUpper(symbol), Percentage: percent}
	switch {
	case qty > 0:
		req.Qty = qty
		req.Unit = oms.Contracts
	case usd > 0:
		req.Qty = usd
		req.Unit = oms.USD
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), orderTimeout)
	defer cancel()

	report, err := client.CloseFuturesPositions(ctx, req)
	if err != nil {
		return err
	}

	for _, o := range report.Closed {
		printf("closed %s qty=%v id=%s", o.Symbol, o.Qty, o.OrderID)
	}
	for _, f := range report.Failed {
		printf("failed %s: %s", f.Request.Symbol, f.Error)
	}
	for _, u := range report.Unclosable {
		printf("unclosable %s: %s", u.Symbol, u.Reason)
	}
	printf("close run: %d closed, %d failed, %d unclosable",
		len(report.Closed), len(report.Failed), len(report.Unclosable))
	return nil
}

func runOrderCancel(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	client, err := env.newOMS()
	if err != nil {
		return err
	}

	symbol, _ := cmd.Flags().GetString("symbol")
	orderID, _ := cmd.Flags().GetString("order-id")
	all, _ := cmd.Flags().GetBool("all")

	if symbol == "" {
		return fmt.Errorf("--symbol is required")
	}
	if orderID == "" && !all {
		return fmt.Errorf("one of --order-id or --all is required")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), orderTimeout)
	defer cancel()

	symbol = strings.ToUpper(symbol)
	if all {
		if err := client.CancelAllOrders(ctx, symbol); err != nil {
			return err
		}
		printf("canceled all open orders for %s", symbol)
		return nil
	}
	if err := client.CancelOrder(ctx, symbol, orderID); err != nil {
		return err
	}
	printf("canceled %s order %s", symbol, orderID)
	return nil
}

func runOrderPositions(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	client, err := env.newOMS()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), orderTimeout)
	defer cancel()

	positions, err := client.OpenPositions(ctx)
	if err != nil {
		return err
	}
	if len(positions) == 0 {
		printf("no open positions")
		return nil
	}

	printf("%-12s %12s %14s %12s %12s %10s %6s", "SYMBOL", "CONTRACTS", "USD", "ENTRY", "MARK", "PNL", "LEV")
	for _, p := range positions {
		printf("%-12s %12.6f %14.2f %12.4f %12.4f %10.2f %5dx",
			p.Symbol, p.SizeContracts, p.SizeUSD, p.EntryPrice, p.MarkPrice, p.UnrealizedPnL, p.Leverage)
	}
	return nil
}

func runOrderBalances(cmd *cobra.Command, args []string) error {
	env, err := loadRuntime(cmd)
	if err != nil {
		return err
	}
	client, err := env.newOMS()
	if err != nil {
		return err
	}

	asset, _ := cmd.Flags().GetString("asset")

	ctx, cancel := context.WithTimeout(cmd.Context(), orderTimeout)
	defer cancel()

	balances, err := client.AccountBalances(ctx, strings.ToUpper(asset))
	if err != nil {
		return err
	}
	if len(balances) == 0 {
		printf("no balances")
		return nil
	}

	printf("%-8s %16s %16s", "ASSET", "FREE", "LOCKED")
	for _, b := range balances {
		printf("%-8s %16.8f %16.8f", b.Asset, b.Free, b.Locked)
	}
	return nil
}
