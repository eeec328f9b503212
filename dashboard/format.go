package dashboard

import (
	"html/template"
	"strconv"

	"madrid-dashboard/models"
	"madrid-dashboard/services"
)

var templateFuncs = template.FuncMap{
	"money":    money,
	"decimal":  decimal,
	"hasInt":   hasInt,
	"hasStr":   hasStr,
	"yesNo":    yesNo,
	"pct":      pct,
	"orDash":   orDash,
	"chartURL": chartURL,
	"plain":    plain,
}

// money renders a NullFloat or float64 as whole euros with separators.
func money(v any) string {
	switch x := v.(type) {
	case models.NullFloat:
		if !x.Valid {
			return "-"
		}
		return "€" + services.FormatThousands(x.Value)
	case float64:
		return "€" + services.FormatThousands(x)
	default:
		return "-"
	}
}

// decimal renders a NullFloat or float64 with two decimals.
func decimal(v any) string {
	switch x := v.(type) {
	case models.NullFloat:
		if !x.Valid {
			return "-"
		}
		return strconv.FormatFloat(x.Value, 'f', 2, 64)
	case float64:
		return strconv.FormatFloat(x, 'f', 2, 64)
	default:
		return "-"
	}
}

func pct(v models.NullFloat) string {
	if !v.Valid {
		return "-"
	}
	return strconv.FormatFloat(v.Value, 'f', 1, 64) + "%"
}

func hasInt(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func hasStr(set []string, v string) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func chartURL(name string, seq uint64) string {
	return "/charts/" + name + ".png?v=" + strconv.FormatUint(seq, 10)
}

// plain renders a form value without exponent notation.
func plain(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
