// Package version computes the next product and bundle versions of a
// release.
//
// The bundle version is an integer that grows by one on every update. The
// product version follows whichever scheme it already uses:
//
//	YYYY.MM.DD     date of the update
//	YYYY.MM.DD.N   date of the update plus the new bundle number
//	MAJOR.MINOR.P  patch digit synchronized with the new bundle number
//
// Anything else is left untouched.
package version

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"shipit/internal/services"
)

// Scheme identifies a product version format.
type Scheme int

const (
	SchemeOther Scheme = iota
	SchemeDate
	SchemeDatePatch
	SchemeSemantic
)

func (s Scheme) String() string {
	switch s {
	case SchemeDate:
		return "date"
	case SchemeDatePatch:
		return "date+patch"
	case SchemeSemantic:
		return "major.minor.patch"
	default:
		return "other"
	}
}

var (
	datePattern      = regexp.MustCompile(`^(\d{4})\.(\d{1,2})\.(\d{1,2})$`)
	datePatchPattern = regexp.MustCompile(`^(\d{4})\.(\d{1,2})\.(\d{1,2})\.(\d+)$`)
	semanticPattern  = regexp.MustCompile(`^(\d+)\.(\d+)\.(\d+)$`)
)

// Detect returns the scheme of productVersion.
func Detect(productVersion string) Scheme {
	v := strings.TrimSpace(productVersion)
	if m := datePatchPattern.FindStringSubmatch(v); m != nil && validDate(m[1], m[2], m[3]) {
		return SchemeDatePatch
	}
	if m := datePattern.FindStringSubmatch(v); m != nil && validDate(m[1], m[2], m[3]) {
		return SchemeDate
	}
	if semanticPattern.MatchString(v) {
		return SchemeSemantic
	}
	return SchemeOther
}

func validDate(year, month, day string) bool {
	m, _ := strconv.Atoi(month)
	d, _ := strconv.Atoi(day)
	return len(year) == 4 && m >= 1 && m <= 12 && d >= 1 && d <= 31
}

// NextBundle increments a bundle version.
func NextBundle(bundle string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(bundle))
	if err != nil || n < 0 {
		return 0, services.Wrap(services.ErrValidation, "version", "bundle", fmt.Sprintf("bundle version %q is not a number", bundle), err)
	}
	return n + 1, nil
}

// Bump returns the product version for the given new bundle number and date.
func Bump(productVersion string, bundle int, today time.Time) string {
	v := strings.TrimSpace(productVersion)
	date := today.Format("2006.01.02")
	switch Detect(v) {
	case SchemeDatePatch:
		return fmt.Sprintf("%s.%d", date, bundle)
	case SchemeDate:
		return date
	case SchemeSemantic:
		m := semanticPattern.FindStringSubmatch(v)
		return fmt.Sprintf("%s.%s.%d", m[1], m[2], bundle)
	default:
		return v
	}
}

// Release is the result of one version update.
type Release struct {
	PreviousProduct string
	PreviousBundle  string
	Product         string
	Bundle          string
	Scheme          Scheme
}

// ProductChanged reports whether the product version moved.
func (r Release) ProductChanged() bool {
	return r.PreviousProduct != r.Product
}

// Next computes the release following product and bundle.
func Next(product, bundle string, today time.Time) (Release, error) {
	n, err := NextBundle(bundle)
	if err != nil {
		return Release{}, err
	}
	return Release{
		PreviousProduct: strings.TrimSpace(product),
		PreviousBundle:  strings.TrimSpace(bundle),
		Product:         Bump(product, n, today),
		Bundle:          strconv.Itoa(n),
		Scheme:          Detect(product),
	}, nil
}

// CommitMessage is the message used for the release commit and tag.
func CommitMessage(product, bundle string) string {
	return fmt.Sprintf("version %s bundle %s", product, bundle)
}

// Tag is the git tag name of a product version.
func Tag(product string) string {
	return "v" + strings.TrimSpace(product)
}
