package features

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	numberRe = regexp.MustCompile(`-?\d+(?:\.\d+)?`)
	okuRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*億`)
	manRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*万`)
	walkRe   = regexp.MustCompile(`(?:徒歩|歩)\s*(\d+)\s*分`)
)

// halfWidth 전각 숫자/기호를 반각으로, 천 단위 구분자 제거
func halfWidth(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= '０' && r <= '９':
			return '0' + (r - '０')
		case r == '．':
			return '.'
		case r == '－' || r == '−':
			return '-'
		case r == ',' || r == '，':
			return -1
		}
		return r
	}, s)
}

// number parses a loosely-typed numeric value. 문자열은 첫 숫자만 사용 ("70.5㎡" → 70.5)
func number(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case int32:
		f = float64(x)
	case json.Number:
		n, err := x.Float64()
		if err != nil {
			return 0, false
		}
		f = n
	case string:
		m := numberRe.FindString(halfWidth(x))
		if m == "" {
			return 0, false
		}
		n, err := strconv.ParseFloat(m, 64)
		if err != nil {
			return 0, false
		}
		f = n
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// maxExactFloat float64 로 정확히 표현되는 정수 상한 (2^53)
const maxExactFloat = 1 << 53

// roundInt64 범위 밖 값은 변환하지 않음 (int64 변환은 범위 밖에서 구현 의존)
func roundInt64(f float64) (int64, bool) {
	r := math.Round(f)
	if math.Abs(r) > maxExactFloat {
		return 0, false
	}
	return int64(r), true
}

// yen parses a currency amount. "1億2,000万円" 같은 億/万 표기를 엔으로 환산
func yen(v any) (int64, bool) {
	s, isStr := v.(string)
	if !isStr {
		f, ok := number(v)
		if !ok {
			return 0, false
		}
		return roundInt64(f)
	}

	s = halfWidth(s)
	if !strings.ContainsAny(s, "億万") {
		f, ok := number(s)
		if !ok {
			return 0, false
		}
		return roundInt64(f)
	}

	var total float64
	rest := s
	if m := okuRe.FindStringSubmatch(rest); m != nil {
		n, _ := strconv.ParseFloat(m[1], 64)
		total += n * 1e8
		rest = rest[strings.Index(rest, m[0])+len(m[0]):]
	}
	if m := manRe.FindStringSubmatch(rest); m != nil {
		n, _ := strconv.ParseFloat(m[1], 64)
		total += n * 1e4
	} else if m := numberRe.FindString(rest); m != "" && total > 0 {
		// "1億5000" 처럼 万 생략
		n, _ := strconv.ParseFloat(m, 64)
		total += n * 1e4
	}
	if total == 0 {
		return 0, false
	}
	return roundInt64(total)
}

// nonNegativeInt returns nil for missing, unparseable, or negative values
func nonNegativeInt(v any, ok bool) *int {
	if !ok {
		return nil
	}
	f, parsed := number(v)
	if !parsed || f < 0 || f > math.MaxInt32 {
		return nil
	}
	n := int(math.Round(f))
	return &n
}

func positiveFloat(v any, ok bool) *float64 {
	if !ok {
		return nil
	}
	f, parsed := number(v)
	if !parsed || f <= 0 {
		return nil
	}
	return &f
}

func nonNegativeYen(v any, ok bool) *int64 {
	if !ok {
		return nil
	}
	n, parsed := yen(v)
	if !parsed || n < 0 {
		return nil
	}
	return &n
}

// walkFromStation extracts 「徒歩N分」 from station/access text
func walkFromStation(s string) *int {
	m := walkRe.FindStringSubmatch(halfWidth(s))
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &n
}

// plainText strips HTML markup from scraped remarks
func plainText(s string) string {
	s = strings.TrimSpace(s)
	if !strings.Contains(s, "<") {
		return s
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return s
	}
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// texts flattens a string or list-of-strings value
func texts(v any) []string {
	switch x := v.(type) {
	case string:
		return []string{x}
	case []string:
		return x
	case []any:
		out := make([]string, 0, len(x))
		for _, item := range x {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func str(v any) string {
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
