package kalshi

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Side represents the order side.
type Side string

const (
	SideYes Side = "yes"
	SideNo  Side = "no"
)

// OrderType represents the order type.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderAction represents the order action.
type OrderAction string

const (
	OrderActionBuy  OrderAction = "buy"
	OrderActionSell OrderAction = "sell"
)

// OrderStatus represents the order status.
type OrderStatus string

const (
	OrderStatusResting  OrderStatus = "resting"
	OrderStatusCanceled OrderStatus = "canceled"
	OrderStatusExecuted OrderStatus = "executed"
	OrderStatusPending  OrderStatus = "pending"
)

// ErrInvalidOrder is returned by order constructors for requests that the
// exchange would reject.
var ErrInvalidOrder = errors.New("kalshi: invalid order")

// CreateOrderRequest represents a request to create an order. Build one with
// NewLimitBuy or NewMarketSell so invalid combinations fail before they
// reach the wire.
type CreateOrderRequest struct {
	Ticker        string      `json:"ticker"`
	Action        OrderAction `json:"action"`
	Side          Side        `json:"side"`
	Type          OrderType   `json:"type"`
	Count         int         `json:"count"`
	YesPrice      int         `json:"yes_price,omitempty"` // cents, 1-99
	NoPrice       int         `json:"no_price,omitempty"`  // cents, 1-99
	ClientOrderID string      `json:"client_order_id,omitempty"`
	Expiration    string      `json:"expiration_ts,omitempty"`
	BuyMaxCost    int         `json:"buy_max_cost,omitempty"` // cents
}

func validateSide(side Side) error {
	if side != SideYes && side != SideNo {
		return fmt.Errorf("%w: side %q", ErrInvalidOrder, side)
	}
	return nil
}

// NewLimitBuy builds a limit buy for count contracts at priceCents on the
// given side. Price must be within the exchange's 1-99 cent band.
func NewLimitBuy(ticker string, side Side, count, priceCents int) (*CreateOrderRequest, error) {
	if ticker == "" {
		return nil, fmt.Errorf("%w: empty ticker", ErrInvalidOrder)
	}
	if err := validateSide(side); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: count %d", ErrInvalidOrder, count)
	}
	if priceCents < 1 || priceCents > 99 {
		return nil, fmt.Errorf("%w: price %d cents outside 1-99", ErrInvalidOrder, priceCents)
	}

	req := &CreateOrderRequest{
		Ticker: ticker,
		Action: OrderActionBuy,
		Side:   side,
		Type:   OrderTypeLimit,
		Count:  count,
	}
	if side == SideYes {
		req.YesPrice = priceCents
	} else {
		req.NoPrice = priceCents
	}
	return req, nil
}

// NewMarketSell builds a market sell for count contracts on the given side.
func NewMarketSell(ticker string, side Side, count int) (*CreateOrderRequest, error) {
	if ticker == "" {
		return nil, fmt.Errorf("%w: empty ticker", ErrInvalidOrder)
	}
	if err := validateSide(side); err != nil {
		return nil, err
	}
	if count <= 0 {
		return nil, fmt.Errorf("%w: count %d", ErrInvalidOrder, count)
	}

	return &CreateOrderRequest{
		Ticker: ticker,
		Action: OrderActionSell,
		Side:   side,
		Type:   OrderTypeMarket,
		Count:  count,
	}, nil
}

// Order represents an order.
type Order struct {
	OrderID        string      `json:"order_id"`
	Ticker         string      `json:"ticker"`
	Action         OrderAction `json:"action"`
	Side           Side        `json:"side"`
	Type           OrderType   `json:"type"`
	Status         OrderStatus `json:"status"`
	YesPrice       int         `json:"yes_price"`
	NoPrice        int         `json:"no_price"`
	CreatedTime    string      `json:"created_time"`
	ExpirationTime string      `json:"expiration_time"`
	ClientOrderID  string      `json:"client_order_id"`
	RemainingCount int         `json:"remaining_count"`
	TakerFillCount int         `json:"taker_fill_count"`
	MakerFillCount int         `json:"maker_fill_count"`
	TakerFillCost  int         `json:"taker_fill_cost"`
	MakerFillCost  int         `json:"maker_fill_cost"`
	LastUpdateTime string      `json:"last_update_time"`
}

// CreateOrderResponse represents a response from creating an order.
type CreateOrderResponse struct {
	Order Order `json:"order"`
}

// GetOrdersResponse represents a response from getting orders.
type GetOrdersResponse struct {
	Orders []Order `json:"orders"`
	Cursor string  `json:"cursor"`
}

// CancelOrderResponse represents a response from canceling an order.
type CancelOrderResponse struct {
	Order     Order `json:"order"`
	ReducedBy int   `json:"reduced_by"`
}

// CreateOrder places a new order.
func (c *Client) CreateOrder(req *CreateOrderRequest) (*Order, error) {
	data, err := c.Post("/portfolio/orders", req)
	if err != nil {
		return nil, err
	}

	var resp CreateOrderResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &resp.Order, nil
}

// GetOrder retrieves an order by ID.
func (c *Client) GetOrder(orderID string) (*Order, error) {
	data, err := c.Get(fmt.Sprintf("/portfolio/orders/%s", orderID))
	if err != nil {
		return nil, err
	}

	var resp struct {
		Order Order `json:"order"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &resp.Order, nil
}

// GetOrders retrieves orders, optionally filtered by ticker and status.
func (c *Client) GetOrders(ticker string, status OrderStatus) ([]Order, error) {
	path := "/portfolio/orders"
	switch {
	case ticker != "" && status != "":
		path += "?ticker=" + ticker + "&status=" + string(status)
	case ticker != "":
		path += "?ticker=" + ticker
	case status != "":
		path += "?status=" + string(status)
	}

	data, err := c.Get(path)
	if err != nil {
		return nil, err
	}

	var resp GetOrdersResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return resp.Orders, nil
}

// CancelOrder cancels an order.
func (c *Client) CancelOrder(orderID string) (*Order, error) {
	data, err := c.Delete(fmt.Sprintf("/portfolio/orders/%s", orderID))
	if err != nil {
		return nil, err
	}

	var resp CancelOrderResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return &resp.Order, nil
}
