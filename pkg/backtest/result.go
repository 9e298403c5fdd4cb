package backtest

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/brendanplayford/tsaw-go/pkg/model"
)

const probClip = 1e-9

// Result is one graded simulated trade.
type Result struct {
	Market        string     `json:"market"`
	Date          time.Time  `json:"date"`
	Side          model.Side `json:"side"`
	Prob          float64    `json:"prob"`
	FillPrice     float64    `json:"fill_price"`
	Outcome       int        `json:"outcome"`
	ContractPrice float64    `json:"contract_price"`
	PnL           float64    `json:"pnl"`
	Brier         float64    `json:"brier"`
	LogLoss       float64    `json:"logloss"`
	Edge          float64    `json:"edge"`
}

// Outcome settles a contract side against the realized value. A yes contract
// pays when actual >= floorStrike; a no contract pays the reverse.
func Outcome(actual, floorStrike float64, side model.Side) int {
	yesWon := actual >= floorStrike
	if (side == model.SideYes) == yesWon {
		return 1
	}
	return 0
}

// NewResult grades a trade. fillPrice is the yes-side price in dollars; for
// a no trade the contract costs its complement.
func NewResult(market string, date time.Time, side model.Side, prob, fillPrice float64, outcome int) Result {
	cp := fillPrice
	if side == model.SideNo {
		cp = 1 - fillPrice
	}

	pnl := -cp
	if outcome == 1 {
		pnl = 1 - cp
	}

	o := float64(outcome)
	p := prob
	if p < probClip {
		p = probClip
	}
	if p > 1-probClip {
		p = 1 - probClip
	}

	return Result{
		Market:        market,
		Date:          date,
		Side:          side,
		Prob:          prob,
		FillPrice:     fillPrice,
		Outcome:       outcome,
		ContractPrice: cp,
		PnL:           pnl,
		Brier:         (prob - o) * (prob - o),
		LogLoss:       -(o*math.Log(p) + (1-o)*math.Log(1-p)),
		Edge:          prob - cp,
	}
}

var resultColumns = []string{
	"market", "date", "side", "prob", "fill_price",
	"outcome", "contract_price", "pnl", "brier", "logloss", "edge",
}

// WriteResultsCSV writes results to path, creating parent directories.
func WriteResultsCSV(path string, results []Result) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create results dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create results file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(resultColumns); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range results {
		rec := []string{
			r.Market,
			r.Date.Format("2006-01-02"),
			string(r.Side),
			formatFloat(r.Prob),
			formatFloat(r.FillPrice),
			strconv.Itoa(r.Outcome),
			formatFloat(r.ContractPrice),
			formatFloat(r.PnL),
			formatFloat(r.Brier),
			formatFloat(r.LogLoss),
			formatFloat(r.Edge),
		}
		if err := w.Write(rec); err != nil {
			return fmt.Errorf("write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush results: %w", err)
	}
	return nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// ReadResultsCSV loads a results file. The second return value lists any
// expected columns the file is missing; when non-empty the rows are nil and
// the caller should treat the file as structurally unsound.
func ReadResultsCSV(path string) ([]Result, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open results file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("parse results file: %w", err)
	}
	if len(records) == 0 {
		return nil, resultColumns, nil
	}

	col := make(map[string]int, len(records[0]))
	for i, name := range records[0] {
		col[name] = i
	}
	var missing []string
	for _, name := range resultColumns {
		if _, ok := col[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, missing, nil
	}

	results := make([]Result, 0, len(records)-1)
	for i, rec := range records[1:] {
		date, err := time.ParseInLocation("2006-01-02", rec[col["date"]], time.UTC)
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: bad date %q: %w", i+2, rec[col["date"]], err)
		}
		outcome, err := strconv.Atoi(rec[col["outcome"]])
		if err != nil {
			return nil, nil, fmt.Errorf("row %d: bad outcome %q: %w", i+2, rec[col["outcome"]], err)
		}

		res := Result{
			Market:  rec[col["market"]],
			Date:    date,
			Side:    model.Side(rec[col["side"]]),
			Outcome: outcome,
		}
		for _, fld := range []struct {
			name string
			dst  *float64
		}{
			{"prob", &res.Prob},
			{"fill_price", &res.FillPrice},
			{"contract_price", &res.ContractPrice},
			{"pnl", &res.PnL},
			{"brier", &res.Brier},
			{"logloss", &res.LogLoss},
			{"edge", &res.Edge},
		} {
			v, err := strconv.ParseFloat(rec[col[fld.name]], 64)
			if err != nil {
				return nil, nil, fmt.Errorf("row %d: bad %s %q: %w", i+2, fld.name, rec[col[fld.name]], err)
			}
			*fld.dst = v
		}
		results = append(results, res)
	}
	return results, nil, nil
}
