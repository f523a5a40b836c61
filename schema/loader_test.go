package schema_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/ari-client/internal/clienterr"
	"goa.design/ari-client/schema"
)

const bridgesDoc = `{
	"resourcePath": "/bridges",
	"apis": [
		{
			"path": "/bridges/{bridgeId}",
			"operations": [
				{
					"httpMethod": "GET",
					"nickname": "get",
					"summary": "Get bridge details",
					"responseClass": "Bridge",
					"parameters": [
						{"name": "bridgeId", "paramType": "path", "required": true, "dataType": "string"}
					]
				}
			]
		}
	]
}`

const eventsDoc = `{
	"models": {
		"PlaybackFinished": {
			"properties": {
				"playback": {"type": "Playback", "description": "the finished playback"}
			}
		}
	}
}`

func mockServer(t *testing.T, resourcesJSON, bridgesJSON, eventsJSON string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/ari/api-docs/resources.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(resourcesJSON))
	})
	mux.HandleFunc("/ari/api-docs/bridges.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(bridgesJSON))
	})
	mux.HandleFunc("/ari/api-docs/events.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(eventsJSON))
	})
	return httptest.NewServer(mux)
}

func TestLoadProducesCatalogAndEvents(t *testing.T) {
	resourcesJSON := `{"apis":[{"path":"/ari/api-docs/bridges.json"}]}`
	srv := mockServer(t, resourcesJSON, bridgesDoc, eventsDoc)
	defer srv.Close()

	catalog, events, err := schema.Load(t.Context(), srv.Client(), srv.URL, "asterisk", "secret")
	require.NoError(t, err)

	bridges, ok := catalog["bridges"]
	require.True(t, ok)
	op, ok := bridges.Operations["get"]
	require.True(t, ok)
	require.Equal(t, "/bridges/{bridgeId}", op.Path)
	require.Equal(t, "GET", op.Method)
	require.Len(t, op.Params, 1)
	require.Equal(t, schema.PlacementPath, op.Params[0].In)

	desc, ok := events.Lookup("PlaybackFinished")
	require.True(t, ok)
	require.Len(t, desc.Fields, 1)
	require.Equal(t, "playback", desc.Fields[0].Name)
	require.Equal(t, "Playback", desc.Fields[0].Type)
}

func TestLoadFetchesMultipleResourceDocsConcurrently(t *testing.T) {
	channelsDoc := `{
		"resourcePath": "/channels",
		"apis": [
			{
				"path": "/channels/{channelId}",
				"operations": [
					{"httpMethod": "GET", "nickname": "get", "responseClass": "Channel",
					 "parameters": [{"name": "channelId", "paramType": "path", "required": true, "dataType": "string"}]}
				]
			}
		]
	}`

	mux := http.NewServeMux()
	mux.HandleFunc("/ari/api-docs/resources.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"apis":[{"path":"/ari/api-docs/bridges.json"},{"path":"/ari/api-docs/channels.json"}]}`))
	})
	mux.HandleFunc("/ari/api-docs/bridges.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(bridgesDoc))
	})
	mux.HandleFunc("/ari/api-docs/channels.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(channelsDoc))
	})
	mux.HandleFunc("/ari/api-docs/events.json", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(eventsDoc))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	catalog, _, err := schema.Load(t.Context(), srv.Client(), srv.URL, "", "")
	require.NoError(t, err)
	require.Contains(t, catalog, "bridges")
	require.Contains(t, catalog, "channels")
}

func TestLoadMalformedEventsDocumentYieldsSchemaInvalid(t *testing.T) {
	resourcesJSON := `{"apis":[]}`
	srv := mockServer(t, resourcesJSON, bridgesDoc, `{"rawModels":{}}`) // missing required "models"
	defer srv.Close()

	_, _, err := schema.Load(t.Context(), srv.Client(), srv.URL, "", "")
	require.Error(t, err)
	var target *clienterr.SchemaInvalid
	require.ErrorAs(t, err, &target)
}

func TestLoadMalformedResourcesRootYieldsSchemaInvalid(t *testing.T) {
	srv := mockServer(t, `{"notApis": true}`, bridgesDoc, eventsDoc)
	defer srv.Close()

	_, _, err := schema.Load(t.Context(), srv.Client(), srv.URL, "", "")
	require.Error(t, err)
	var target *clienterr.SchemaInvalid
	require.ErrorAs(t, err, &target)
}

func TestLoadUnreachableHostYieldsHostUnreachable(t *testing.T) {
	srv := mockServer(t, `{"apis":[]}`, bridgesDoc, eventsDoc)
	srv.Close() // closed before Load ever dials it

	_, _, err := schema.Load(t.Context(), srv.Client(), srv.URL, "", "")
	require.Error(t, err)
	var target *clienterr.HostUnreachable
	require.ErrorAs(t, err, &target)
}

func TestLoadUnparsableBaseURLYieldsHostUnreachable(t *testing.T) {
	_, _, err := schema.Load(t.Context(), http.DefaultClient, "://not-a-url", "", "")
	require.Error(t, err)
	var target *clienterr.HostUnreachable
	require.ErrorAs(t, err, &target)
}

func TestLoadPathPlaceholderWithoutMatchingParamFails(t *testing.T) {
	badDoc := `{
		"resourcePath": "/bridges",
		"apis": [
			{
				"path": "/bridges/{bridgeId}",
				"operations": [
					{"httpMethod": "GET", "nickname": "get", "responseClass": "Bridge", "parameters": []}
				]
			}
		]
	}`
	resourcesJSON := `{"apis":[{"path":"/ari/api-docs/bridges.json"}]}`
	srv := mockServer(t, resourcesJSON, badDoc, eventsDoc)
	defer srv.Close()

	_, _, err := schema.Load(t.Context(), srv.Client(), srv.URL, "", "")
	require.Error(t, err)
}
