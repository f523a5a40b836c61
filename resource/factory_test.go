package resource_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"goa.design/ari-client/resource"
	"goa.design/ari-client/schema"
)

func TestBuildHandleTablesPartitionsByNamespace(t *testing.T) {
	catalog := schema.Catalog{
		"bridges": {
			Name: "bridges",
			Operations: map[string]*schema.Operation{
				"list": {Name: "list", Resource: "bridges", Method: "GET", Path: "/bridges"},
			},
		},
		"channels": {
			Name: "channels",
			Operations: map[string]*schema.Operation{
				"list": {Name: "list", Resource: "channels", Method: "GET", Path: "/channels"},
			},
		},
	}

	tables := resource.BuildHandleTables(catalog)
	require.Len(t, tables, len(resource.KnownKinds))
	require.Contains(t, tables[resource.KindBridge].Operations, "list")
	require.Contains(t, tables[resource.KindChannel].Operations, "list")
	require.Empty(t, tables[resource.KindSound].Operations)
}

func TestFactoryWrapAndCreatorShareHandleTable(t *testing.T) {
	handles := map[resource.Kind]*resource.HandleTable{
		resource.KindBridge: bridgeHandles(),
	}
	for _, k := range resource.KnownKinds {
		if _, ok := handles[k]; !ok {
			handles[k] = &resource.HandleTable{Kind: k, Operations: map[string]*schema.Operation{}}
		}
	}
	inv := &fakeInvoker{resp: map[string]any{"id": "b1"}}
	factory := resource.NewFactory(handles, inv)

	wrapped := factory.Wrap(resource.KindBridge, map[string]any{"id": "b1"})
	require.Equal(t, "b1", wrapped.Identity())

	creator := factory.Creator(resource.KindBridge)
	inst, err := creator.Make("b2")
	require.NoError(t, err)

	_, err = inst.Call(t.Context(), "destroy", nil)
	require.NoError(t, err)
	require.Equal(t, "b2", inv.calls[0]["id"])
}
