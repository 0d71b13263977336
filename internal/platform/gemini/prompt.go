package gemini

// defaultPromptTemplate instructs the model to return venue details in the
// exact JSON shape the rest of the pipeline expects. Fields the page does not
// mention must come back as null rather than guesses.
const defaultPromptTemplate = `You are a data extraction assistant. Extract wedding venue details from the web page content below and respond with a single JSON object matching this exact schema:

{
  "name": "venue name",
  "location": {"city": "city", "area": "area or locality", "state": "state"},
  "rating": "rating as shown on the page",
  "guest_capacity": {"seated": 100, "floating": 200},
  "price_per_plate_starting": {"veg": 1000, "non_veg": 1200},
  "venue_type": ["e.g. banquet hall, lawn, resort"],
  "spaces_available": ["e.g. indoor, outdoor, poolside"],
  "rooms_available": 10,
  "cover_image_url": ["image urls from the list below"]
}

Rules:
- Use null for any field the page does not state. Never invent values.
- Numbers must be JSON numbers, not strings.
- cover_image_url entries must come from the provided image list, preferring venue photos over logos.
- Respond with the JSON object only, no surrounding text or markdown.

Page title: {{.Title}}
Page description: {{.Description}}

Page text:
{{.Text}}

Image URLs:
{{range .Images}}- {{.}}
{{end}}`
