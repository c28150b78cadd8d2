package rpc_test

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/NethermindEth/seth/jsonrpc"
	"github.com/NethermindEth/seth/ledger"
	"github.com/NethermindEth/seth/mocks"
	"github.com/NethermindEth/seth/rpc"
	"github.com/NethermindEth/seth/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func TestMethods(t *testing.T) {
	handler := rpc.New(nil, utils.NewNopZapLogger())

	var names []string
	for _, method := range handler.Methods() {
		names = append(names, method.Name)
	}
	assert.Equal(t, []string{
		"eth_getBalance",
		"eth_getStorageAt",
		"eth_getCode",
		"eth_sign",
		"eth_call",
		"eth_accounts",
	}, names)

	server := jsonrpc.NewServer(1, utils.NewNopZapLogger())
	require.NoError(t, server.RegisterMethods(handler.Methods()...))
}

func newServer(t *testing.T, client ledger.Client) *jsonrpc.Server {
	t.Helper()
	server := jsonrpc.NewServer(1, utils.NewNopZapLogger())
	require.NoError(t, server.RegisterMethods(rpc.New(client, utils.NewNopZapLogger()).Methods()...))
	return server
}

func TestEndToEnd(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	t.Cleanup(mockCtrl.Finish)
	mockLedger := mocks.NewMockLedgerClient(mockCtrl)
	server := newServer(t, mockLedger)

	expectations := func() {
		mockLedger.EXPECT().Account(gomock.Any(), stripped, ledger.LatestKey()).
			Return(&ledger.Account{Balance: big.NewInt(10), Code: []byte{0xfe}}, nil).AnyTimes()
		mockLedger.EXPECT().Account(gomock.Any(), strings.Repeat("b", 40), gomock.Any()).
			Return(nil, ledger.ErrNotFound).AnyTimes()
		mockLedger.EXPECT().Account(gomock.Any(), strings.Repeat("c", 40), gomock.Any()).
			Return(nil, errors.New("validator at tcp://10.0.0.1:4004 unreachable")).AnyTimes()
		mockLedger.EXPECT().StorageAt(gomock.Any(), stripped, "00", ledger.NumberKey(2)).
			Return([]byte{0x01}, nil).AnyTimes()
	}
	expectations()

	bAddr := `"0x` + strings.Repeat("b", 40) + `"`
	cAddr := `"0x` + strings.Repeat("c", 40) + `"`
	aAddr := `"` + address + `"`

	tests := map[string]struct {
		req string
		res string
	}{
		"balance": {
			req: `{"jsonrpc":"2.0","method":"eth_getBalance","params":[` + aAddr + `,"latest"],"id":1}`,
			res: `{"jsonrpc":"2.0","result":"0xa","id":1}`,
		},
		"named params": {
			req: `{"jsonrpc":"2.0","method":"eth_getBalance","params":{"block":"latest","address":` + aAddr + `},"id":1}`,
			res: `{"jsonrpc":"2.0","error":{"code":-32602,"message":"Takes [address: DATA(20), block: QUANTITY|TAG]"},"id":1}`,
		},
		"absent account is null": {
			req: `{"jsonrpc":"2.0","method":"eth_getBalance","params":[` + bAddr + `,"latest"],"id":1}`,
			res: `{"jsonrpc":"2.0","result":null,"id":1}`,
		},
		"code": {
			req: `{"jsonrpc":"2.0","method":"eth_getCode","params":[` + aAddr + `,"latest"],"id":"x"}`,
			res: `{"jsonrpc":"2.0","result":"0xfe","id":"x"}`,
		},
		"absent code is null": {
			req: `{"jsonrpc":"2.0","method":"eth_getCode","params":[` + bAddr + `,"0x5"],"id":1}`,
			res: `{"jsonrpc":"2.0","result":null,"id":1}`,
		},
		"storage": {
			req: `{"jsonrpc":"2.0","method":"eth_getStorageAt","params":[` + aAddr + `,"0x00","0x2"],"id":1}`,
			res: `{"jsonrpc":"2.0","result":"0x01","id":1}`,
		},
		"short storage position": {
			req: `{"jsonrpc":"2.0","method":"eth_getStorageAt","params":[` + aAddr + `,"0x0","latest"],"id":1}`,
			res: `{"jsonrpc":"2.0","error":{"code":-32602,"message":"Invalid storage position: 0x0"},"id":1}`,
		},
		"ledger failure is opaque": {
			req: `{"jsonrpc":"2.0","method":"eth_getBalance","params":[` + cAddr + `,"latest"],"id":1}`,
			res: `{"jsonrpc":"2.0","error":{"code":-32603,"message":"Internal error"},"id":1}`,
		},
		"unsupported tag": {
			req: `{"jsonrpc":"2.0","method":"eth_getCode","params":[` + aAddr + `,"pending"],"id":1}`,
			res: `{"jsonrpc":"2.0","error":{"code":-32004,"message":"Not implemented"},"id":1}`,
		},
		"invalid block": {
			req: `{"jsonrpc":"2.0","method":"eth_getBalance","params":[` + aAddr + `,"0xnope"],"id":1}`,
			res: `{"jsonrpc":"2.0","error":{"code":-32602,"message":"Failed to parse block number"},"id":1}`,
		},
		"wrong arity": {
			req: `{"jsonrpc":"2.0","method":"eth_getBalance","params":[` + aAddr + `],"id":1}`,
			res: `{"jsonrpc":"2.0","error":{"code":-32602,"message":"Takes [address: DATA(20), block: QUANTITY|TAG]"},"id":1}`,
		},
		"wrong type": {
			req: `{"jsonrpc":"2.0","method":"eth_getCode","params":[` + aAddr + `,1],"id":1}`,
			res: `{"jsonrpc":"2.0","error":{"code":-32602,"message":"Takes [address: DATA(20), block: QUANTITY|TAG]"},"id":1}`,
		},
		"null block": {
			req: `{"jsonrpc":"2.0","method":"eth_getBalance","params":[` + aAddr + `,null],"id":1}`,
			res: `{"jsonrpc":"2.0","error":{"code":-32602,"message":"Takes [address: DATA(20), block: QUANTITY|TAG]"},"id":1}`,
		},
		"null address": {
			req: `{"jsonrpc":"2.0","method":"eth_getCode","params":[null,"latest"],"id":1}`,
			res: `{"jsonrpc":"2.0","error":{"code":-32602,"message":"Takes [address: DATA(20), block: QUANTITY|TAG]"},"id":1}`,
		},
		"null storage position": {
			req: `{"jsonrpc":"2.0","method":"eth_getStorageAt","params":[` + aAddr + `,null,"latest"],"id":1}`,
			res: `{"jsonrpc":"2.0","error":{"code":-32602,"message":"Takes [address: DATA(20), position: QUANTITY, block: QUANTITY|TAG]"},"id":1}`,
		},
		"storage wrong arity": {
			req: `{"jsonrpc":"2.0","method":"eth_getStorageAt","params":[` + aAddr + `,"latest"],"id":1}`,
			res: `{"jsonrpc":"2.0","error":{"code":-32602,"message":"Takes [address: DATA(20), position: QUANTITY, block: QUANTITY|TAG]"},"id":1}`,
		},
		"sign": {
			req: `{"jsonrpc":"2.0","method":"eth_sign","params":[` + aAddr + `,"0xdeadbeef"],"id":1}`,
			res: `{"jsonrpc":"2.0","error":{"code":-32004,"message":"Not implemented"},"id":1}`,
		},
		"call": {
			req: `{"jsonrpc":"2.0","method":"eth_call","params":[{"to":` + aAddr + `},"latest"],"id":1}`,
			res: `{"jsonrpc":"2.0","error":{"code":-32004,"message":"Not implemented"},"id":1}`,
		},
		"accounts": {
			req: `{"jsonrpc":"2.0","method":"eth_accounts","id":1}`,
			res: `{"jsonrpc":"2.0","error":{"code":-32004,"message":"Not implemented"},"id":1}`,
		},
		"unknown method": {
			req: `{"jsonrpc":"2.0","method":"eth_blockNumber","id":1}`,
			res: `{"jsonrpc":"2.0","error":{"code":-32601,"message":"Method Not Found"},"id":1}`,
		},
		"batch": {
			req: `[{"jsonrpc":"2.0","method":"eth_getBalance","params":[` + aAddr + `,"latest"],"id":1},` +
				`{"jsonrpc":"2.0","method":"eth_accounts","id":2}]`,
			res: `[{"jsonrpc":"2.0","result":"0xa","id":1},{"jsonrpc":"2.0","error":{"code":-32004,"message":"Not implemented"},"id":2}]`,
		},
	}

	for desc, test := range tests {
		t.Run(desc, func(t *testing.T) {
			res, err := server.HandleReader(context.Background(), strings.NewReader(test.req))
			require.NoError(t, err)
			assert.Equal(t, test.res, string(res))
		})
	}
}

func TestEndToEndLedgerNotCalled(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	t.Cleanup(mockCtrl.Finish)
	// no expectations: any ledger call fails the test
	server := newServer(t, mocks.NewMockLedgerClient(mockCtrl))

	for _, req := range []string{
		`{"jsonrpc":"2.0","method":"eth_getStorageAt","params":["` + address + `","0x1","latest"],"id":1}`,
		`{"jsonrpc":"2.0","method":"eth_getBalance","params":["0x1234","latest"],"id":1}`,
		`{"jsonrpc":"2.0","method":"eth_getBalance","params":["` + address + `","finalized"],"id":1}`,
		`{"jsonrpc":"2.0","method":"eth_getBalance","params":{"address":"` + address + `","block":"latest","extra":1},"id":1}`,
		`{"jsonrpc":"2.0","method":"eth_getCode","params":["` + address + `",null],"id":1}`,
		`{"jsonrpc":"2.0","method":"eth_sign","params":["` + address + `","0x00"],"id":1}`,
		`{"jsonrpc":"2.0","method":"eth_call","params":[],"id":1}`,
		`{"jsonrpc":"2.0","method":"eth_accounts","params":{"any":"thing"},"id":1}`,
	} {
		res, err := server.HandleReader(context.Background(), strings.NewReader(req))
		require.NoError(t, err)
		assert.Contains(t, string(res), `"error"`)
	}
}
