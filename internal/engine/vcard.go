package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/emersion/go-vcard"
	"github.com/google/uuid"
	"github.com/tartampluch/go-addressbook/internal/config"
)

// personNamespace seeds the deterministic IDs of cards that carry no UID.
var personNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte(config.UserIDNamespaceKey))

// VCardFetcher implements DirectoryFetcher over a local .vcf file.
type VCardFetcher struct {
	Path string
}

// NewVCardFetcher creates a fetcher reading path on every call.
func NewVCardFetcher(path string) *VCardFetcher {
	return &VCardFetcher{Path: path}
}

// FetchAll decodes every card of the file. Cards without a usable BDAY are skipped.
func (f *VCardFetcher) FetchAll(ctx context.Context) ([]Person, error) {
	op := "open " + f.Path

	if f.Path == "" {
		return nil, &TransportError{Op: op, Err: errors.New(config.ErrLocalPathEmpty)}
	}

	file, err := os.Open(f.Path)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("%s: %w", config.ErrVCardOpen, err)}
	}
	defer func() { _ = file.Close() }()

	people, err := decodeCards(ctx, file)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	return people, nil
}

func decodeCards(ctx context.Context, r io.Reader) ([]Person, error) {
	log := slog.With(slog.String(config.LogKeyComponent, config.CompFetcher))

	decoder := vcard.NewDecoder(r)
	var people []Person
	processed := 0

	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		card, err := decoder.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			// Keep going: one broken card must not hide the rest of the address book.
			log.Warn(config.MsgSkippedCard, slog.Any(config.LogKeyError, err))
			continue
		}
		processed++

		p, ok := personFromCard(card)
		if !ok {
			continue
		}
		people = append(people, p)
	}

	log.Info(config.MsgFetchDone,
		slog.Int(config.LogKeyTotal, processed),
		slog.Int(config.LogKeyWithBday, len(people)))
	return people, nil
}

// personFromCard maps a vCard onto a Person. It reports false when the card has no usable birthday.
func personFromCard(card vcard.Card) (Person, bool) {
	bday := card.Get(config.VCardBDAY)
	if bday == nil || bday.Value == "" {
		return Person{}, false
	}

	birthDate, err := parseCardDate(bday.Value)
	if err != nil {
		slog.Debug(config.MsgSkippedDate,
			config.LogKeyComponent, config.CompFetcher,
			config.LogKeyValue, bday.Value)
		return Person{}, false
	}

	p := Person{
		UserTag:  card.Value(config.VCardNickname),
		Position: card.Value(config.VCardTitle),
		Birthday: birthDate.Format(config.DateFormatFullDash),
		Phone:    card.PreferredValue(config.VCardTel),
	}

	// Name strategy: N (structured) > FN (formatted) > fallback
	if n := card.Name(); n != nil && n.GivenName != "" {
		p.FirstName, p.LastName = n.GivenName, n.FamilyName
	} else if fn := strings.TrimSpace(card.Value(config.VCardFN)); fn != "" {
		p.FirstName, p.LastName, _ = strings.Cut(fn, " ")
	} else {
		p.FirstName = config.FallbackName
	}

	// ORG is "Company;Unit"; the unit names the department.
	if _, unit, ok := strings.Cut(card.Value(config.VCardOrg), ";"); ok && unit != "" {
		dept, _ := ParseDepartment(unit)
		p.Department = dept
	}

	if photo := card.Value(config.VCardPhoto); strings.HasPrefix(photo, config.SchemeHTTP) {
		p.AvatarURL = photo
	}

	p.ID = card.Value(config.VCardUID)
	if p.ID == "" {
		p.ID = uuid.NewSHA1(personNamespace, []byte(p.FullName()+"|"+p.Birthday)).String()
	}
	return p, true
}

// parseCardDate handles the BDAY layouts found in the wild.
// Dates without a year are pinned to a leap year so February 29 survives.
func parseCardDate(value string) (time.Time, error) {
	formatsWithYear := []string{
		config.DateFormatFullDash,
		config.DateFormatFullBasic,
		config.DateFormatRFC3339,
	}
	for _, f := range formatsWithYear {
		if t, err := time.Parse(f, value); err == nil {
			return t, nil
		}
	}

	formatsWithoutYear := []string{config.DateFormatNoYearD, config.DateFormatNoYearB}
	for _, f := range formatsWithoutYear {
		if t, err := time.Parse(f, value); err == nil {
			return time.Date(config.DefaultLeapYear, t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}

	return time.Time{}, &ParseError{Value: value, Err: errors.New(config.ErrDateParse)}
}
