package spec

import "testing"

func TestDefaultServerURLAndPort(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name    string
		servers []Server
		url     string
		port    int
	}{
		{"none", nil, "", 8080},
		{"variables", []Server{{URL: "http://{host}:{port}/rpc", Variables: map[string]ServerVariable{
			"host": {Default: "localhost"}, "port": {Default: "4000"},
		}}}, "http://localhost:4000/rpc", 4000},
		{"https", []Server{{URL: "https://api.example.com"}}, "https://api.example.com", 443},
		{"http", []Server{{URL: "http://api.example.com/rpc"}}, "http://api.example.com/rpc", 80},
		{"first only", []Server{{URL: "http://a:1"}, {URL: "http://b:2"}}, "http://a:1", 1},
		{"no default", []Server{{URL: "http://{host}/rpc"}}, "http://{host}/rpc", 8080},
		{"relative", []Server{{URL: "/rpc"}}, "/rpc", 8080},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			doc := &Document{Servers: tc.servers}
			if got := doc.DefaultServerURL(); got != tc.url {
				t.Fatalf("url: want %q got %q", tc.url, got)
			}
			if got := doc.DefaultPort(); got != tc.port {
				t.Fatalf("port: want %d got %d", tc.port, got)
			}
		})
	}
}
