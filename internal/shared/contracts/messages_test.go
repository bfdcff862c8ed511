package contracts

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInt(t *testing.T) {
	cases := []struct {
		raw     string
		want    int64
		wantErr bool
	}{
		{`5`, 5, false},
		{` 42 `, 42, false},
		{`-3`, -3, false},
		{`"7"`, 7, false},
		{`" 8 "`, 8, false},
		{`2.0`, 2, false},
		{`1e2`, 100, false},
		{`2.5`, 0, true},
		{`"abc"`, 0, true},
		{`true`, 0, true},
		{`{}`, 0, true},
		{`null`, 0, true},
		{``, 0, true},
		{`9223372036854775807`, 9223372036854775807, false},
		{`9.223372036854775807e18`, 9223372036854775807, false},
		{`-9223372036854775808`, -9223372036854775808, false},
		{`9223372036854775808`, 0, true},
		{`18446744073709551617`, 0, true},
		{`18446744073709551618`, 0, true},
		{`"18446744073709551618"`, 0, true},
		{`-9223372036854775809`, 0, true},
		{`1e30`, 0, true},
	}
	for _, c := range cases {
		got, err := ParseInt(json.RawMessage(c.raw))
		if c.wantErr {
			assert.Error(t, err, "raw %q", c.raw)
			continue
		}
		require.NoError(t, err, "raw %q", c.raw)
		assert.Equal(t, c.want, got, "raw %q", c.raw)
	}
}

func TestOrderMessage_WireFormat(t *testing.T) {
	msg := NewOrderMessage(12, []ItemPayload{NewItemPayload(1, 2), NewItemPayload(3, 4)})
	body, err := json.Marshal(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"pedido_id":12,"itens":[{"produto_id":1,"quantidade":2},{"produto_id":3,"quantidade":4}]}`, string(body))

	var back OrderMessage
	require.NoError(t, json.Unmarshal(body, &back))
	id, err := back.OrderIDInt()
	require.NoError(t, err)
	assert.Equal(t, int64(12), id)
	qty, err := back.Items[1].QuantityInt()
	require.NoError(t, err)
	assert.Equal(t, int64(4), qty)
}

func TestOrderMessage_MissingFields(t *testing.T) {
	var msg OrderMessage
	require.NoError(t, json.Unmarshal([]byte(`{"itens":[{"produto_id":"x"}]}`), &msg))

	_, err := msg.OrderIDInt()
	assert.ErrorIs(t, err, ErrMissing)
	_, err = msg.Items[0].ProductIDInt()
	assert.Error(t, err)
	_, err = msg.Items[0].QuantityInt()
	assert.ErrorIs(t, err, ErrMissing)
}

func TestNewOrderMessage_EmptyItemsEncodeAsArray(t *testing.T) {
	body, err := json.Marshal(NewOrderMessage(1, nil))
	require.NoError(t, err)
	assert.JSONEq(t, `{"pedido_id":1,"itens":[]}`, string(body))
}

func TestParseInt_OutOfRangeIsTagged(t *testing.T) {
	for _, raw := range []string{`18446744073709551618`, `"18446744073709551617"`, `-1e19`} {
		_, err := ParseInt(json.RawMessage(raw))
		assert.ErrorIs(t, err, ErrOutOfRange, "raw %s", raw)
	}
}
