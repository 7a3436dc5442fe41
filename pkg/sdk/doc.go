// Package renoplan provides a Go client for the renoplan strategic
// renovation consultation service.
//
// A consultation sends a free-text renovation brief (budget included) and
// an optional geographic anchor; the service analyses every matching
// catalog location and returns one investment blueprint per location,
// ranked by investment score.
//
//	client, _ := renoplan.New("https://renoplan.example.com",
//	    renoplan.WithPrivateKey(os.Getenv("RENOPLAN_PRIVATE_KEY")),
//	)
//
//	resp, err := client.Consult(ctx, renoplan.ConsultRequest{
//	    Brief: "Caut o casă de renovat lângă București, buget maxim 30000 EUR",
//	})
//	if err != nil {
//	    // errors.Is(err, renoplan.ErrInvalid) etc.
//	}
//	for _, plan := range resp.Results {
//	    // each plan is the raw JSON blueprint produced by the engine
//	}
//
// To narrow the catalog to a radius around a point, set the three geo
// fields together:
//
//	lat, lon, r := 44.4268, 26.1025, 25.0
//	resp, err = client.Consult(ctx, renoplan.ConsultRequest{
//	    Brief: "Buget 50000 EUR, renovare completă",
//	    Lat:   &lat, Lon: &lon, RadiusKm: &r,
//	})
package renoplan
