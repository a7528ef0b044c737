/*
Copyright IBM Corp. All Rights Reserved.

SPDX-License-Identifier: Apache-2.0
*/

package comm

import (
	"github.com/hyperledger/fabric-x-dagpool/common/wire"
	"google.golang.org/grpc/encoding"
)

// CodecName is the gRPC content subtype of the dagpool messages.
const CodecName = "dagpool-wire"

// Empty is the reply of calls that only acknowledge.
type Empty struct{}

type wireCodec struct{}

var _ encoding.Codec = wireCodec{}

func (wireCodec) Marshal(v interface{}) ([]byte, error) {
	if _, ok := v.(*Empty); ok {
		return nil, nil
	}
	return wire.Marshal(v)
}

func (wireCodec) Unmarshal(data []byte, v interface{}) error {
	if _, ok := v.(*Empty); ok {
		return nil
	}
	return wire.Unmarshal(data, v)
}

func (wireCodec) Name() string {
	return CodecName
}

func init() {
	encoding.RegisterCodec(wireCodec{})
}
