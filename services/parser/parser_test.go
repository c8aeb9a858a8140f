package parser

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openstay/reservstack/internal/logger"
	"github.com/openstay/reservstack/internal/utils"
)

const bookingEmail = `Hola, La Familia Hostel - Manila

Recibiste una nueva reserva de Booking.com para La Familia Hostel - Manila

Reserva: 6057955462
Titular: Nastassia Yankouskaya
Bielorrusia
Email del huésped: nyanko.690495@guest.booking.com

4 noches, 1 habitaciones, 1 huéspedes
Check in: 17/11/2025
Check out: 21/11/2025

Total: COP 186600
Comisión: COP 27990
`

func testParser(t *testing.T) *ReservationEmailParser {
	t.Helper()
	appLogger := logger.NewAppLogger(&logger.Config{LogLevel: "debug"})
	appLogger.InitLogger()
	return NewReservationEmailParser(appLogger)
}

func TestParseBookingEmail(t *testing.T) {
	parsed := testParser(t).Parse(bookingEmail, "")
	require.NotNil(t, parsed)

	assert.Equal(t, "6057955462", parsed.ReservationCode)
	assert.Equal(t, "Nastassia Yankouskaya", parsed.GuestName)
	assert.Equal(t, "nyanko.690495@guest.booking.com", parsed.GuestEmail)
	assert.Equal(t, utils.Date(2025, 11, 17), parsed.CheckInDate)
	assert.Equal(t, utils.Date(2025, 11, 21), parsed.CheckOutDate)
	assert.Equal(t, float64(186600), parsed.Amount)
	assert.Equal(t, "COP", parsed.Currency)
	assert.Equal(t, "Bielorrusia", parsed.Nationality)

	require.NotNil(t, parsed.Nights)
	assert.Equal(t, 4, *parsed.Nights)
	require.NotNil(t, parsed.Rooms)
	assert.Equal(t, 1, *parsed.Rooms)
	require.NotNil(t, parsed.Guests)
	assert.Equal(t, 1, *parsed.Guests)
	require.NotNil(t, parsed.Commission)
	assert.Equal(t, float64(27990), *parsed.Commission)

	// The long digit run in the booking code must not be mistaken for a phone
	assert.Empty(t, parsed.GuestPhone)
}

func TestParseNonReservationEmail(t *testing.T) {
	parsed := testParser(t).Parse("Your weekly newsletter is here. Click to unsubscribe.", "")
	assert.Nil(t, parsed)
}

func TestParseCancellationIsSkipped(t *testing.T) {
	text := strings.Replace(bookingEmail, "Recibiste una nueva reserva", "Reserva cancelada en", 1)
	parsed := testParser(t).Parse(text, "")
	assert.Nil(t, parsed)
}

func TestParseMissingDatesInvalidates(t *testing.T) {
	text := `nueva reserva de Booking.com
Reserva: 6057955462
Titular: John Doe
Total: COP 100000
`
	parsed := testParser(t).Parse(text, "")
	assert.Nil(t, parsed)
}

func TestParseMissingAmountInvalidates(t *testing.T) {
	text := `nueva reserva de Booking.com
Reserva: 6057955462
Titular: John Doe
Check in: 01/01/2026
Check out: 02/01/2026
`
	parsed := testParser(t).Parse(text, "")
	assert.Nil(t, parsed)
}

func TestParseAmountVariants(t *testing.T) {
	base := `nueva reserva de Booking.com
Reserva: 6057955462
Titular: John Doe
Check in: 01/01/2026
Check out: 02/01/2026
`

	tests := []struct {
		name     string
		total    string
		amount   float64
		currency string
	}{
		{"currency first with space", "Total: COP 186600", 186600, "COP"},
		{"currency last with space", "Total: 186600 COP", 186600, "COP"},
		{"currency first no space", "Total: COP186600", 186600, "COP"},
		{"currency last no space", "Total: 186600COP", 186600, "COP"},
		{"thousands separators", "Total: COP 186,600", 186600, "COP"},
		{"cargos label", "Cargos: USD 120", 120, "USD"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			parsed := testParser(t).Parse(base+tt.total+"\n", "")
			require.NotNil(t, parsed)
			assert.Equal(t, tt.amount, parsed.Amount)
			assert.Equal(t, tt.currency, parsed.Currency)
		})
	}
}

func TestParseAlphanumericCode(t *testing.T) {
	text := `new reservation from Airbnb
Código de reserva: HMZHEFTJDS
Titular: Laura Corominas España
Check in: 05/03/2026
Check out: 08/03/2026
Total: EUR 240
`
	parsed := testParser(t).Parse(text, "")
	require.NotNil(t, parsed)
	assert.Equal(t, "HMZHEFTJDS", parsed.ReservationCode)
	// Trailing nationality on the name line is stripped
	assert.Equal(t, "Laura Corominas", parsed.GuestName)
}

func TestParseShortCodeRejected(t *testing.T) {
	text := `nueva reserva
Reserva: 12345
Titular: John Doe
Check in: 01/01/2026
Check out: 02/01/2026
Total: COP 100000
`
	parsed := testParser(t).Parse(text, "")
	assert.Nil(t, parsed)
}

func TestParsePhoneNumber(t *testing.T) {
	text := `nueva reserva de Booking.com
Reserva: 6057955462
Titular: John Doe
Teléfono: +573001234567
Check in: 01/01/2026
Check out: 02/01/2026
Total: COP 100000
`
	parsed := testParser(t).Parse(text, "")
	require.NotNil(t, parsed)
	assert.Equal(t, "+573001234567", parsed.GuestPhone)
}

func TestParseHTMLBody(t *testing.T) {
	html := `<div>Recibiste una nueva reserva de Booking.com para La Familia Hostel</div>
<p>Reserva: 6057955462</p>
<p>Titular: Nastassia Yankouskaya</p>
<p>Check in: 17/11/2025<br>Check out: 21/11/2025</p>
<p>Total: COP 186600</p>`

	parsed := testParser(t).Parse(bookingEmail, html)
	require.NotNil(t, parsed)
	assert.Equal(t, "6057955462", parsed.ReservationCode)
	assert.Equal(t, utils.Date(2025, 11, 17), parsed.CheckInDate)
}

func TestParseShortHTMLFallsBackToText(t *testing.T) {
	// Flattened HTML under 100 characters is considered broken
	parsed := testParser(t).Parse(bookingEmail, "<p>nueva reserva</p>")
	require.NotNil(t, parsed)
	assert.Equal(t, "6057955462", parsed.ReservationCode)
	assert.Equal(t, "Nastassia Yankouskaya", parsed.GuestName)
}

func TestFlattenHTML(t *testing.T) {
	html := `<div>Hola &amp; bienvenido</div><p>Reserva: 123</p><br/>Total:&nbsp;COP 100`
	flat := flattenHTML(html)
	assert.Equal(t, "Hola & bienvenido\nReserva: 123\n\nTotal: COP 100", flat)
}
