// Package owmtest serves canned OpenWeatherMap responses for tests.
package owmtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
)

const APIKey = "test_api_key"

// City is a fixture location known to the fake server.
type City struct {
	Name    string
	Country string
	Lat     float64
	Lon     float64
	Temp    float64
	WindDeg float64
	AQI     int
}

var Cities = []City{
	{Name: "London", Country: "GB", Lat: 51.5085, Lon: -0.1257, Temp: 14.5, WindDeg: 225, AQI: 2},
	{Name: "Paris", Country: "FR", Lat: 48.8534, Lon: 2.3488, Temp: 17.4, WindDeg: 45, AQI: 3},
	{Name: "Tokyo", Country: "JP", Lat: 35.6895, Lon: 139.6917, Temp: 22.6, WindDeg: 0, AQI: 1},
	{Name: "Oslo", Country: "NO", Lat: 59.9127, Lon: 10.7461, Temp: -2.5, WindDeg: 315, AQI: 1},
	{Name: "Madrid", Country: "ES", Lat: 40.4165, Lon: -3.7026, Temp: 25.1, WindDeg: 180, AQI: 4},
}

// Server is a fake OpenWeatherMap. Unknown city names get a 404, like the real service.
type Server struct {
	*httptest.Server

	mu       sync.Mutex
	hits     map[string]int
	gates    map[string]chan struct{}
	failures map[string]int
	oneCall  bool
}

func NewServer() *Server {
	s := &Server{
		hits:     make(map[string]int),
		gates:    make(map[string]chan struct{}),
		failures: make(map[string]int),
		oneCall:  true,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/data/2.5/weather", s.weather)
	mux.HandleFunc("/data/2.5/forecast", s.forecast)
	mux.HandleFunc("/data/3.0/onecall", s.onecall)
	mux.HandleFunc("/data/2.5/air_pollution", s.airPollution)
	mux.HandleFunc("/geo/1.0/direct", s.geocode)
	s.Server = httptest.NewServer(s.count(mux))
	return s
}

// Hits returns how many requests reached path.
func (s *Server) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// Block holds every request for city until the returned release func is called.
func (s *Server) Block(city string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	s.gates[strings.ToLower(city)] = ch
	s.mu.Unlock()
	var once sync.Once
	return func() { once.Do(func() { close(ch) }) }
}

// FailStatus makes requests to path answer with status.
func (s *Server) FailStatus(path string, status int) {
	s.mu.Lock()
	s.failures[path] = status
	s.mu.Unlock()
}

// DisableOneCall makes the daily product answer 401, as it does without a subscription.
func (s *Server) DisableOneCall() {
	s.mu.Lock()
	s.oneCall = false
	s.mu.Unlock()
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.hits[r.URL.Path]++
		status := s.failures[r.URL.Path]
		s.mu.Unlock()

		if r.URL.Query().Get("appid") != APIKey {
			writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"cod": 401, "message": "Invalid API key"})
			return
		}
		if status != 0 {
			writeJSON(w, status, map[string]interface{}{"cod": strconv.Itoa(status), "message": "simulated failure"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) wait(city string) {
	s.mu.Lock()
	ch := s.gates[strings.ToLower(city)]
	s.mu.Unlock()
	if ch != nil {
		<-ch
	}
}

func findCity(name string) (City, bool) {
	for _, c := range Cities {
		if strings.EqualFold(c.Name, strings.TrimSpace(name)) {
			return c, true
		}
	}
	return City{}, false
}

func findCoords(r *http.Request) (City, bool) {
	lat, err1 := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, err2 := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if err1 != nil || err2 != nil {
		return City{}, false
	}
	for _, c := range Cities {
		if c.Lat == lat && c.Lon == lon {
			return c, true
		}
	}
	// Open sea: no place name, but still weather.
	return City{Lat: lat, Lon: lon, Temp: 18, AQI: 1}, true
}

func notFound(w http.ResponseWriter) {
	writeJSON(w, http.StatusNotFound, map[string]string{"cod": "404", "message": "city not found"})
}

func (s *Server) weather(w http.ResponseWriter, r *http.Request) {
	var (
		c  City
		ok bool
	)
	if q := r.URL.Query().Get("q"); q != "" {
		s.wait(q)
		c, ok = findCity(q)
	} else {
		c, ok = findCoords(r)
		s.wait(c.Name)
	}
	if !ok {
		notFound(w)
		return
	}
	writeJSON(w, http.StatusOK, CurrentPayload(c))
}

// CurrentPayload is the /data/2.5/weather body for c.
func CurrentPayload(c City) map[string]interface{} {
	return map[string]interface{}{
		"coord":      map[string]float64{"lat": c.Lat, "lon": c.Lon},
		"weather":    []map[string]interface{}{{"id": 803, "main": "Clouds", "description": "broken clouds", "icon": "04d"}},
		"main":       map[string]interface{}{"temp": c.Temp, "feels_like": c.Temp - 1, "temp_min": c.Temp - 2, "temp_max": c.Temp + 2, "pressure": 1015, "humidity": 70},
		"visibility": 10000,
		"wind":       map[string]float64{"speed": 4.1, "deg": c.WindDeg},
		"clouds":     map[string]int{"all": 75},
		"dt":         1760500000,
		"sys":        map[string]interface{}{"country": c.Country, "sunrise": 1760480000, "sunset": 1760520000},
		"name":       c.Name,
	}
}

func (s *Server) forecast(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	s.wait(q)
	c, ok := findCity(q)
	if !ok {
		notFound(w)
		return
	}
	list := make([]map[string]interface{}, 0, 40)
	for i := 0; i < 40; i++ {
		list = append(list, map[string]interface{}{
			"dt":      1760500800 + i*3*3600,
			"main":    map[string]interface{}{"temp": c.Temp + float64(i%8)/2, "feels_like": c.Temp, "humidity": 65, "pressure": 1013},
			"weather": []map[string]interface{}{{"id": 500, "main": "Rain", "description": "light rain", "icon": "10d"}},
			"clouds":  map[string]int{"all": 40},
			"wind":    map[string]float64{"speed": 3.5, "deg": c.WindDeg},
			"pop":     0.35,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cnt":  len(list),
		"list": list,
		"city": map[string]interface{}{"name": c.Name, "country": c.Country, "coord": map[string]float64{"lat": c.Lat, "lon": c.Lon}},
	})
}

func (s *Server) onecall(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	enabled := s.oneCall
	s.mu.Unlock()
	if !enabled {
		writeJSON(w, http.StatusUnauthorized, map[string]interface{}{"cod": 401, "message": "One Call 3.0 requires a separate subscription"})
		return
	}
	c, _ := findCoords(r)
	daily := make([]map[string]interface{}, 0, 8)
	for i := 0; i < 8; i++ {
		daily = append(daily, map[string]interface{}{
			"dt":         1760522400 + i*86400,
			"temp":       map[string]float64{"day": c.Temp, "min": c.Temp - 5, "max": c.Temp + 3},
			"feels_like": map[string]float64{"day": c.Temp - 1},
			"pressure":   1012,
			"humidity":   55,
			"wind_speed": 5.2,
			"wind_deg":   c.WindDeg,
			"weather":    []map[string]interface{}{{"id": 801, "main": "Clouds", "description": "few clouds", "icon": "02d"}},
			"clouds":     20,
			"pop":        0.1,
		})
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"lat": c.Lat, "lon": c.Lon, "timezone": "UTC", "daily": daily})
}

func (s *Server) airPollution(w http.ResponseWriter, r *http.Request) {
	c, _ := findCoords(r)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"coord": map[string]float64{"lat": c.Lat, "lon": c.Lon},
		"list": []map[string]interface{}{{
			"main":       map[string]int{"aqi": c.AQI},
			"components": map[string]float64{"no2": 15.4, "o3": 60.1, "pm2_5": 8.2, "pm10": 12.7},
			"dt":         1760500000,
		}},
	})
}

func (s *Server) geocode(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query().Get("q")
	s.wait(q)
	c, ok := findCity(q)
	if !ok {
		writeJSON(w, http.StatusOK, []interface{}{})
		return
	}
	writeJSON(w, http.StatusOK, []map[string]interface{}{{
		"name": c.Name, "lat": c.Lat, "lon": c.Lon, "country": c.Country, "state": "",
	}})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		panic(fmt.Sprintf("owmtest: encode: %v", err))
	}
}
