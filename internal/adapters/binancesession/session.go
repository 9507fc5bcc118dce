package binancesession

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/domain"
	"github.com/MrRolie/mm-ibkr-gateway-sub000/internal/ports"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"
)

const (
	// Base URLs
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"
)

// Session implements ports.BrokerSession against Binance USD-M futures. It
// serves the CRYPTO security type only; other instrument classes need a
// session for a venue that lists them.
//
// Binance has no staged-transmit concept: every placed order is live
// immediately, so a leg's Transmit flag is advisory here. The executor's
// ordering guarantee (activating leg last) still holds.
type Session struct {
	futuresClient *futures.Client
	logger        ports.Logger

	// Binance cancels and polls by (symbol, orderID); remember the symbol for
	// every order this session placed.
	mu           sync.Mutex
	orderSymbols map[int64]string
}

// Config holds configuration specific to the Binance session adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
}

// New creates a new Binance session adapter.
func New(cfg Config) (*Session, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("logger is required for Binance session")
	}
	if cfg.APIKey == "" || cfg.SecretKey == "" {
		cfg.Logger.Warn(context.Background(), "APIKey or SecretKey is empty. Session will only work for public endpoints.")
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)

	// Set BaseURL directly instead of using global futures.UseTestnet
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
		cfg.Logger.Info(context.Background(), "Binance session configured for Testnet", map[string]interface{}{"baseURL": client.BaseURL})
	} else {
		client.BaseURL = baseURLProduction
		cfg.Logger.Info(context.Background(), "Binance session configured for Production", map[string]interface{}{"baseURL": client.BaseURL})
	}

	return &Session{
		futuresClient: client,
		logger:        cfg.Logger,
		orderSymbols:  make(map[int64]string),
	}, nil
}

// handleError translates common Binance API errors into standardized ports errors.
func (s *Session) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var finalErr error
	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1003: // Too many requests
			mappedErr = ports.ErrRateLimited
		case -1021: // Timestamp outside of recvWindow
			mappedErr = ports.ErrTimeout
		case -1022: // Invalid signature
			mappedErr = ports.ErrAuthenticationFailed
		case -1121: // Invalid symbol
			mappedErr = ports.ErrContractNotFound
		case -2010: // New order rejected
			mappedErr = ports.ErrOrderPlacementFailed
		case -2011: // Cancel order rejected
			mappedErr = ports.ErrOrderCancelFailed
		case -2013: // Order does not exist
			mappedErr = ports.ErrOrderNotFound
		case -2014, -2015: // API-key format invalid / bad permissions
			mappedErr = ports.ErrAuthenticationFailed
		case -2019, -3005: // Margin / balance insufficient
			mappedErr = ports.ErrInsufficientFunds
		default:
			mappedErr = ports.ErrVenueUnavailable
		}
		finalErr = fmt.Errorf("%s failed: %w: %s", operation, mappedErr, apiErr.Message)
	} else if errors.Is(err, context.DeadlineExceeded) {
		finalErr = fmt.Errorf("%s failed: %w: %v", operation, ports.ErrTimeout, err)
	} else if strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "connection reset by peer") {
		finalErr = fmt.Errorf("%s failed: %w: %v", operation, ports.ErrConnectionFailed, err)
	} else {
		finalErr = fmt.Errorf("%s failed: %w: %v", operation, ports.ErrUnknown, err)
	}

	s.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return finalErr
}

// IsConnected reports whether the venue API answers a ping.
func (s *Session) IsConnected() bool {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.futuresClient.NewPingService().Do(ctx) == nil
}

// conID derives a stable numeric contract id from the venue symbol; Binance
// has no native numeric instrument ids.
func conID(symbol string) int64 {
	h := fnv.New32a()
	h.Write([]byte(symbol))
	return int64(h.Sum32())
}

// venueSymbol joins spec symbol and currency into Binance's concatenated form
// (e.g. BTC + USDT -> BTCUSDT). Specs may also carry the full pair directly.
func venueSymbol(spec domain.SymbolSpec) string {
	sym := strings.ToUpper(spec.Symbol)
	cur := strings.ToUpper(spec.Currency)
	if cur != "" && cur != "USD" && !strings.HasSuffix(sym, cur) {
		return sym + cur
	}
	return sym
}

// QualifyContract resolves a CRYPTO spec against the venue's exchange info.
func (s *Session) QualifyContract(ctx context.Context, spec domain.SymbolSpec) ([]domain.ResolvedContract, error) {
	op := "QualifyContract"
	if spec.SecurityType != domain.SecCrypto {
		return nil, fmt.Errorf("%w: binance session only lists CRYPTO instruments, got %s", ports.ErrInvalidRequest, spec.SecurityType)
	}

	info, err := s.futuresClient.NewExchangeInfoService().Do(ctx)
	if err != nil {
		return nil, s.handleError(ctx, err, op)
	}

	want := venueSymbol(spec)
	var candidates []domain.ResolvedContract
	for _, sym := range info.Symbols {
		if sym.Symbol != want {
			continue
		}
		candidates = append(candidates, domain.ResolvedContract{
			ConID:        conID(sym.Symbol),
			Symbol:       sym.Symbol,
			SecurityType: domain.SecCrypto,
			Exchange:     "BINANCE",
			Currency:     sym.QuoteAsset,
			LocalSymbol:  sym.Symbol,
		})
	}
	if len(candidates) == 0 {
		s.logger.Debug(ctx, op+": no venue match", map[string]interface{}{"symbol": want})
	}
	return candidates, nil
}

// ContractDetails returns the qualified candidates with expiries. USD-M
// perpetuals carry no expiry, so the expiry field stays empty.
func (s *Session) ContractDetails(ctx context.Context, spec domain.SymbolSpec) ([]domain.ContractDetails, error) {
	candidates, err := s.QualifyContract(ctx, spec)
	if err != nil {
		return nil, err
	}
	details := make([]domain.ContractDetails, 0, len(candidates))
	for _, c := range candidates {
		details = append(details, domain.ContractDetails{Contract: c, Expiry: c.Expiry})
	}
	return details, nil
}

// formatQty formats a quantity for the venue API.
func formatQty(quantity float64) string {
	return strconv.FormatFloat(quantity, 'f', 3, 64)
}

// formatPrice formats a price for the venue API.
func formatPrice(price float64) string {
	return strconv.FormatFloat(price, 'f', 2, 64)
}

// PlaceOrder submits one leg and returns the venue order id.
func (s *Session) PlaceOrder(ctx context.Context, contract domain.ResolvedContract, leg domain.OrderLeg) (int64, error) {
	op := "PlaceOrder"

	svc := s.futuresClient.NewCreateOrderService().
		Symbol(contract.Symbol).
		Side(futures.SideType(leg.Side)).
		Quantity(formatQty(leg.Quantity))

	switch leg.OrderType {
	case domain.Market, domain.MarketOnClose, domain.MarketOnOpen:
		svc = svc.Type(futures.OrderTypeMarket)
	case domain.Limit:
		svc = svc.Type(futures.OrderTypeLimit).
			TimeInForce(futures.TimeInForceTypeGTC).
			Price(formatPrice(leg.LimitPrice))
	case domain.Stop:
		svc = svc.Type(futures.OrderTypeStopMarket).
			StopPrice(formatPrice(leg.StopPrice))
	case domain.StopLimit:
		svc = svc.Type(futures.OrderTypeStop).
			TimeInForce(futures.TimeInForceTypeGTC).
			Price(formatPrice(leg.LimitPrice)).
			StopPrice(formatPrice(leg.StopPrice))
	case domain.Trail, domain.TrailLimit:
		if leg.TrailingPercent <= 0 {
			return 0, fmt.Errorf("%w: binance trailing orders require trailingPercent", ports.ErrInvalidRequest)
		}
		svc = svc.Type(futures.OrderTypeTrailingStopMarket).
			CallbackRate(strconv.FormatFloat(leg.TrailingPercent, 'f', 1, 64))
	default:
		return 0, fmt.Errorf("%w: unsupported order type %q for binance venue", ports.ErrInvalidRequest, leg.OrderType)
	}

	if leg.ClientOrderID != "" {
		svc = svc.NewClientOrderID(leg.ClientOrderID)
	}

	order, err := svc.Do(ctx)
	if err != nil {
		return 0, s.handleError(ctx, err, op)
	}

	s.mu.Lock()
	s.orderSymbols[order.OrderID] = contract.Symbol
	s.mu.Unlock()

	s.logger.Info(ctx, op+" successful", map[string]interface{}{
		"symbol":  contract.Symbol,
		"side":    leg.Side,
		"type":    leg.OrderType,
		"orderID": order.OrderID,
	})
	return order.OrderID, nil
}

func (s *Session) symbolFor(orderID int64) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	symbol, ok := s.orderSymbols[orderID]
	if !ok {
		return "", fmt.Errorf("order %d was not placed through this session: %w", orderID, ports.ErrOrderNotFound)
	}
	return symbol, nil
}

// CancelOrder cancels an open order previously placed through this session.
func (s *Session) CancelOrder(ctx context.Context, orderID int64) error {
	op := "CancelOrder"
	symbol, err := s.symbolFor(orderID)
	if err != nil {
		return err
	}
	if _, err := s.futuresClient.NewCancelOrderService().Symbol(symbol).OrderID(orderID).Do(ctx); err != nil {
		return s.handleError(ctx, err, op)
	}
	s.logger.Info(ctx, op+" successful", map[string]interface{}{"symbol": symbol, "orderID": orderID})
	return nil
}

// OrderState polls the venue for an order's current state. The status label
// is passed through natively; the executor normalizes it.
func (s *Session) OrderState(ctx context.Context, orderID int64) (domain.OrderState, error) {
	op := "OrderState"
	symbol, err := s.symbolFor(orderID)
	if err != nil {
		return domain.OrderState{}, err
	}

	order, err := s.futuresClient.NewGetOrderService().Symbol(symbol).OrderID(orderID).Do(ctx)
	if err != nil {
		return domain.OrderState{}, s.handleError(ctx, err, op)
	}

	filled, _ := strconv.ParseFloat(order.ExecutedQuantity, 64)
	orig, _ := strconv.ParseFloat(order.OrigQuantity, 64)
	avg, _ := strconv.ParseFloat(order.AvgPrice, 64)
	return domain.OrderState{
		OrderID:      orderID,
		Status:       domain.OrderStatus(order.Status),
		FilledQty:    filled,
		RemainingQty: orig - filled,
		AvgFillPrice: avg,
	}, nil
}

// Quote returns the current top of book for a contract.
func (s *Session) Quote(ctx context.Context, contract domain.ResolvedContract) (domain.Quote, error) {
	op := "Quote"
	books, err := s.futuresClient.NewListBookTickersService().Symbol(contract.Symbol).Do(ctx)
	if err != nil {
		return domain.Quote{}, s.handleError(ctx, err, op)
	}
	if len(books) == 0 {
		return domain.Quote{}, fmt.Errorf("no book data returned for symbol %s: %w", contract.Symbol, ports.ErrContractNotFound)
	}

	bid, err := strconv.ParseFloat(books[0].BidPrice, 64)
	if err != nil {
		return domain.Quote{}, s.handleError(ctx, fmt.Errorf("could not parse bid '%s': %w", books[0].BidPrice, err), op)
	}
	ask, err := strconv.ParseFloat(books[0].AskPrice, 64)
	if err != nil {
		return domain.Quote{}, s.handleError(ctx, fmt.Errorf("could not parse ask '%s': %w", books[0].AskPrice, err), op)
	}
	return domain.Quote{Bid: bid, Ask: ask}, nil
}

// AccountSummary reports total wallet balance as net liquidation.
func (s *Session) AccountSummary(ctx context.Context) (domain.AccountSummary, error) {
	op := "AccountSummary"
	account, err := s.futuresClient.NewGetAccountService().Do(ctx)
	if err != nil {
		return domain.AccountSummary{}, s.handleError(ctx, err, op)
	}
	balance, err := strconv.ParseFloat(account.TotalWalletBalance, 64)
	if err != nil {
		return domain.AccountSummary{}, s.handleError(ctx, fmt.Errorf("could not parse balance '%s': %w", account.TotalWalletBalance, err), op)
	}
	return domain.AccountSummary{NetLiquidation: balance, Currency: "USDT"}, nil
}
