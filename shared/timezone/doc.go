// Package timezone pins every time value in the service to the application timezone.
//
// Usage Examples:
//
//  1. Current time and conversion:
//     now := timezone.Now()
//     appTime := timezone.ToAppTime(someTime)
//
//  2. Stay dates coming from clients, either "2024-06-01" or RFC3339:
//     checkIn, err := timezone.ParseDate("2024-06-01")
//
//  3. Calendar day used to match ledger entries:
//     day := timezone.CalendarDay(checkIn) // "2024-06-01"
//
// The timezone is configured via the APP_TIMEZONE environment variable
// and is initialized when the package is imported. Use IANA names such as
// "UTC" or "Asia/Jakarta".
package timezone
