package parser

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/openstay/reservstack/internal/logger"
	"github.com/openstay/reservstack/internal/utils"
)

// ParsedReservation holds the fields extracted from a booking notification
// email. Code, name, both dates, amount and currency are always set; the
// remaining fields are present only when the email carried them.
type ParsedReservation struct {
	ReservationCode string
	GuestName       string
	GuestEmail      string
	GuestPhone      string
	CheckInDate     time.Time
	CheckOutDate    time.Time
	Amount          float64
	Currency        string
	Nights          *int
	Rooms           *int
	Guests          *int
	Nationality     string
	Commission      *float64
}

// ReservationEmailParser extracts reservation data from channel manager
// notification emails (Booking.com, Hostelworld, Airbnb via lobbybookings.com
// and similar). Matching is heuristic: ordered pattern lists per field, first
// hit wins.
type ReservationEmailParser struct {
	log logger.Logger
}

func NewReservationEmailParser(log logger.Logger) *ReservationEmailParser {
	return &ReservationEmailParser{log: log}
}

var reservationMarkers = []string{
	"nueva reserva",
	"new reservation",
	"Recibiste una nueva reserva",
	"Booking.com",
	"Hostelworld",
	"Airbnb",
	"reserva confirmada",
	"reservation confirmed",
}

var cancellationMarkers = []string{
	"cancelada",
	"cancelled",
}

// Parse returns the extracted reservation, or nil when the email is not a
// reservation notification, is a cancellation, or is missing a required
// field.
func (p *ReservationEmailParser) Parse(emailText string, emailHTML string) *ParsedReservation {
	if !containsAny(emailText, reservationMarkers) {
		return nil
	}

	if containsAny(emailText, cancellationMarkers) {
		p.log.Info("Email is a cancellation, skipping")
		return nil
	}

	textToParse := emailText
	if emailHTML != "" {
		flattened := flattenHTML(emailHTML)
		// Badly structured HTML flattens to almost nothing; fall back to the
		// plain text part in that case.
		if len(flattened) >= 100 {
			textToParse = flattened
		}
	}

	code := extractReservationCode(textToParse)
	if code == "" {
		p.log.Warn("Reservation code not found")
		return nil
	}

	name := extractGuestName(textToParse)
	if name == "" {
		p.log.Warn("Guest name not found")
		return nil
	}

	email, phone := extractContactInfo(textToParse)
	// A bare digit run can match both the phone fallback and the reservation
	// code; such a "phone" is discarded.
	if phone == code {
		phone = ""
	}

	checkIn, checkOut, ok := extractDates(textToParse)
	if !ok {
		p.log.Warn("Check-in/check-out dates not found")
		return nil
	}

	amount, currency, ok := extractAmount(textToParse)
	if !ok {
		p.log.Warn("Amount not found")
		return nil
	}

	return &ParsedReservation{
		ReservationCode: code,
		GuestName:       name,
		GuestEmail:      email,
		GuestPhone:      phone,
		CheckInDate:     checkIn,
		CheckOutDate:    checkOut,
		Amount:          amount,
		Currency:        currency,
		Nights:          extractCount(textToParse, nightsPatterns),
		Rooms:           extractCount(textToParse, roomsPatterns),
		Guests:          extractCount(textToParse, guestsPatterns),
		Nationality:     extractNationality(textToParse),
		Commission:      extractCommission(textToParse),
	}
}

func containsAny(text string, markers []string) bool {
	for _, marker := range markers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return false
}

var (
	htmlLineBreaks   = regexp.MustCompile(`(?i)<br\s*/?>|</p>|</div>`)
	htmlTags         = regexp.MustCompile(`<[^>]+>`)
	multipleBlankLns = regexp.MustCompile(`\n\s*\n\s*\n`)
)

// flattenHTML strips tags from an HTML body while keeping the text layout
// close to what the plain text part would look like.
func flattenHTML(html string) string {
	text := htmlLineBreaks.ReplaceAllString(html, "\n")
	text = htmlTags.ReplaceAllString(text, "")
	text = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
	).Replace(text)
	text = multipleBlankLns.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

var reservationCodePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)c[óo]digo de reserva:\s*([A-Z0-9]+)`),
	regexp.MustCompile(`(?i)reserva:\s*([A-Z0-9]+)`),
	regexp.MustCompile(`(?i)reservation code:\s*([A-Z0-9]+)`),
	regexp.MustCompile(`(?i)reservation:\s*([A-Z0-9]+)`),
	regexp.MustCompile(`(\d{10,})`),
	regexp.MustCompile(`([A-Z]{8,})`),
}

// extractReservationCode supports numeric codes (Booking.com) and
// alphanumeric codes (Airbnb, Hostelworld). Codes shorter than 6 characters
// are noise from the labelled patterns and are rejected.
func extractReservationCode(text string) string {
	for _, pattern := range reservationCodePatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			code := strings.TrimSpace(match[1])
			if len(code) >= 6 {
				return code
			}
		}
	}
	return ""
}

var (
	guestNamePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Titular:\s+([^\n]+)`),
		regexp.MustCompile(`(?i)Titular:\s*([^\n]+)`),
		regexp.MustCompile(`(?i)Guest:\s*([^\n]+)`),
		regexp.MustCompile(`(?i)Hu[ée]sped:\s*([^\n]+)`),
		regexp.MustCompile(`(?i)Name:\s*([^\n]+)`),
	}
	trailingCountry = regexp.MustCompile(`(?i)\s+(Bielorrusia|Belarus|Colombia|Germany|USA|España|Spain|France|Italy|UK|Mexico|Argentina|Brazil|China|Japan|Korea|India|Russia|Turkey|Egypt|South Africa|Australia|New Zealand)$`)
)

// extractGuestName takes the line after the guest label. Some channel
// managers append the nationality to the name line ("Laura Corominas España"),
// so a trailing country word is stripped.
func extractGuestName(text string) string {
	for _, pattern := range guestNamePatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			name := strings.TrimSpace(match[1])
			name = strings.TrimSpace(trailingCountry.ReplaceAllString(name, ""))
			if name != "" {
				return name
			}
		}
	}
	return ""
}

var (
	emailPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Email del hu[ée]sped:\s*([^\s\n]+)`),
		regexp.MustCompile(`(?i)Guest email:\s*([^\s\n]+)`),
		regexp.MustCompile(`(?i)Email:\s*([^\s\n]+)`),
		regexp.MustCompile(`([a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,})`),
	}
	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Tel[ée]fono:\s*([^\s\n]+)`),
		regexp.MustCompile(`(?i)Phone:\s*([^\s\n]+)`),
		regexp.MustCompile(`(?i)Tel:\s*([^\s\n]+)`),
		regexp.MustCompile(`(\+?\d{7,15})`),
	}
)

func extractContactInfo(text string) (email string, phone string) {
	for _, pattern := range emailPatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			candidate := strings.TrimSpace(match[1])
			if strings.Contains(candidate, "@") && strings.Contains(candidate, ".") {
				email = candidate
				break
			}
		}
	}

	for _, pattern := range phonePatterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			candidate := strings.TrimSpace(match[1])
			if !strings.Contains(candidate, "@") {
				phone = candidate
				break
			}
		}
	}

	return email, phone
}

var (
	checkInPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Check in:\s*(\d{2})/(\d{2})/(\d{4})`),
		regexp.MustCompile(`(?i)Check-in:\s*(\d{2})/(\d{2})/(\d{4})`),
		regexp.MustCompile(`(?i)Entrada:\s*(\d{2})/(\d{2})/(\d{4})`),
	}
	checkOutPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)Check out:\s*(\d{2})/(\d{2})/(\d{4})`),
		regexp.MustCompile(`(?i)Check-out:\s*(\d{2})/(\d{2})/(\d{4})`),
		regexp.MustCompile(`(?i)Salida:\s*(\d{2})/(\d{2})/(\d{4})`),
	}
)

// extractDates reads DD/MM/YYYY dates as UTC midnight.
func extractDates(text string) (checkIn time.Time, checkOut time.Time, ok bool) {
	checkIn, inOk := matchDate(text, checkInPatterns)
	checkOut, outOk := matchDate(text, checkOutPatterns)
	if !inOk || !outOk {
		return time.Time{}, time.Time{}, false
	}
	return checkIn, checkOut, true
}

func matchDate(text string, patterns []*regexp.Regexp) (time.Time, bool) {
	for _, pattern := range patterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			day, _ := strconv.Atoi(match[1])
			month, _ := strconv.Atoi(match[2])
			year, _ := strconv.Atoi(match[3])
			return utils.Date(year, month, day), true
		}
	}
	return time.Time{}, false
}

var amountPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Total:\s*([A-Z]{3})\s+(\d+[\d,.]*)`),
	regexp.MustCompile(`(?i)Total:\s*(\d+[\d,.]*)\s+([A-Z]{3})`),
	regexp.MustCompile(`(?i)Total:\s*([A-Z]{3})\s*(\d+[\d,.]*)`),
	regexp.MustCompile(`(?i)Total:\s*(\d+[\d,.]*)\s*([A-Z]{3})`),
	regexp.MustCompile(`(?i)Cargos:\s*([A-Z]{3})\s+(\d+[\d,.]*)`),
	regexp.MustCompile(`(?i)Cargos:\s*(\d+[\d,.]*)\s+([A-Z]{3})`),
	regexp.MustCompile(`(?i)Cargos:\s*([A-Z]{3})\s*(\d+[\d,.]*)`),
	regexp.MustCompile(`(?i)Cargos:\s*(\d+[\d,.]*)\s*([A-Z]{3})`),
}

var currencyCode = regexp.MustCompile(`^[A-Z]{3}$`)

// extractAmount handles the currency code before or after the number, with or
// without a separating space. Thousands separators are stripped; the amounts
// in these emails never carry decimals.
func extractAmount(text string) (amount float64, currency string, ok bool) {
	for _, pattern := range amountPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		var amountStr string
		if currencyCode.MatchString(match[1]) {
			currency = match[1]
			amountStr = match[2]
		} else {
			amountStr = match[1]
			currency = match[2]
		}

		parsed, err := parseAmount(amountStr)
		if err != nil || parsed <= 0 {
			continue
		}

		return parsed, currency, true
	}

	return 0, "", false
}

func parseAmount(raw string) (float64, error) {
	clean := strings.NewReplacer(",", "", ".", "").Replace(raw)
	return strconv.ParseFloat(clean, 64)
}

var (
	nightsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s*noches?`),
		regexp.MustCompile(`(?i)(\d+)\s*nights?`),
	}
	roomsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s*habitaciones?`),
		regexp.MustCompile(`(?i)(\d+)\s*rooms?`),
	}
	guestsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s*hu[ée]spedes?`),
		regexp.MustCompile(`(?i)(\d+)\s*guests?`),
	}
)

func extractCount(text string, patterns []*regexp.Regexp) *int {
	for _, pattern := range patterns {
		if match := pattern.FindStringSubmatch(text); match != nil {
			count, err := strconv.Atoi(match[1])
			if err == nil {
				return &count
			}
		}
	}
	return nil
}

var knownCountries = []string{
	"Bielorrusia", "Belarus", "Colombia", "Germany", "USA", "Spain", "France",
	"Italy", "UK", "Mexico", "Argentina", "Brazil", "China", "Japan", "Korea",
	"India", "Russia", "Turkey", "Egypt", "South Africa", "Australia", "New Zealand",
}

var countryPatterns = buildCountryPatterns()

func buildCountryPatterns() []*regexp.Regexp {
	patterns := make([]*regexp.Regexp, len(knownCountries))
	for i, country := range knownCountries {
		patterns[i] = regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(country) + `\b`)
	}
	return patterns
}

func extractNationality(text string) string {
	for i, pattern := range countryPatterns {
		if pattern.MatchString(text) {
			return knownCountries[i]
		}
	}
	return ""
}

var commissionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)Comisi[óo]n:\s*([A-Z]{3})\s*(\d+[\d,.]*)`),
	regexp.MustCompile(`(?i)Comisi[óo]n:\s*(\d+[\d,.]*)\s*([A-Z]{3})`),
	regexp.MustCompile(`(?i)Commission:\s*([A-Z]{3})\s*(\d+[\d,.]*)`),
	regexp.MustCompile(`(?i)Commission:\s*(\d+[\d,.]*)\s*([A-Z]{3})`),
}

func extractCommission(text string) *float64 {
	for _, pattern := range commissionPatterns {
		match := pattern.FindStringSubmatch(text)
		if match == nil {
			continue
		}

		amountStr := match[1]
		if currencyCode.MatchString(match[1]) {
			amountStr = match[2]
		}

		parsed, err := parseAmount(amountStr)
		if err != nil || parsed <= 0 {
			continue
		}

		return &parsed
	}
	return nil
}
