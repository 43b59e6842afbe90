package orders

import "fmt"

// MaxLineQty caps the quantity of one product in an order, both per
// request line and after merging.
const MaxLineQty = 10000

// Line is one requested cart entry.
type Line struct {
	ProductID uint64
	Qty       int
}

// ValidateLines rejects an empty cart, quantities outside 1..MaxLineQty
// and zero product ids. The returned field map is keyed like the request body.
func ValidateLines(lines []Line) (map[string]string, error) {
	if len(lines) == 0 {
		return nil, ErrEmptyCart
	}
	fields := map[string]string{}
	var err error
	for i, l := range lines {
		if l.ProductID == 0 {
			fields[fmt.Sprintf("items[%d].product_id", i)] = "must be a positive id"
			if err == nil {
				err = ErrInvalidProduct
			}
		}
		switch {
		case l.Qty <= 0:
			fields[fmt.Sprintf("items[%d].qty", i)] = "must be greater than 0"
		case l.Qty > MaxLineQty:
			fields[fmt.Sprintf("items[%d].qty", i)] = fmt.Sprintf("must be at most %d", MaxLineQty)
		default:
			continue
		}
		if err == nil {
			err = ErrInvalidQty
		}
	}
	if err != nil {
		return fields, err
	}
	return nil, nil
}

// MergeLines sums quantities of repeated products, keeping the order in
// which each product first appeared. A sum past MaxLineQty is clamped to
// MaxLineQty+1 so it can never wrap; CheckMerged reports it.
func MergeLines(lines []Line) []Line {
	idx := make(map[uint64]int, len(lines))
	out := make([]Line, 0, len(lines))
	for _, l := range lines {
		if i, ok := idx[l.ProductID]; ok {
			if l.Qty > MaxLineQty-out[i].Qty {
				out[i].Qty = MaxLineQty + 1
			} else {
				out[i].Qty += l.Qty
			}
			continue
		}
		idx[l.ProductID] = len(out)
		out = append(out, l)
	}
	return out
}

// CheckMerged rejects merged lines whose quantity left 1..MaxLineQty.
// Fields are keyed by product id since merged lines no longer match
// request positions.
func CheckMerged(lines []Line) map[string]string {
	var fields map[string]string
	for _, l := range lines {
		if l.Qty > 0 && l.Qty <= MaxLineQty {
			continue
		}
		if fields == nil {
			fields = map[string]string{}
		}
		fields[fmt.Sprintf("items.product_%d.qty", l.ProductID)] = fmt.Sprintf("total quantity must be between 1 and %d", MaxLineQty)
	}
	return fields
}

func productIDs(lines []Line) []uint64 {
	ids := make([]uint64, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	return ids
}
