package snmp

import (
	"context"
	"errors"
	"net"
	"testing"

	"github.com/hawkridge/snmpc2/snmp/mocks"

	"github.com/golang/mock/gomock"
	assert "github.com/stretchr/testify/require"
)

// timeoutError is a minimal net.Error whose Timeout() reports true, used to
// drive the executeRequest retry path without a real socket deadline.
type timeoutError struct{}

func (timeoutError) Error() string   { return "i/o timeout" }
func (timeoutError) Timeout() bool   { return true }
func (timeoutError) Temporary() bool { return true }

func newTestSession(conn *mocks.MockConn, ids IDSource) *sessionImpl {
	config := defaultConfig
	config.address = "localhost:161"
	config.community = "public"
	config.trace = NoOpLoggingHooks
	return &sessionImpl{config: &config, conn: conn, ids: ids}
}

func TestGet(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	mockConn := mocks.NewMockConn(mockCtrl)

	getRequest := []byte{
		0x30, 0x26,
		0x02, 0x01, 0x01,
		0x04, 0x06, 0x70, 0x75, 0x62, 0x6c, 0x69, 0x63,
		0xa0, 0x19,
		0x02, 0x01, 0x01,
		0x02, 0x01, 0x00,
		0x02, 0x01, 0x00,
		0x30, 0x0e,
		0x30, 0x0c,
		0x06, 0x08, 0x2b, 0x06, 0x01, 0x02, 0x01, 0x01, 0x05, 0x00,
		0x05, 0x00,
	}

	getResponse := []byte{
		0x30, 0x82, 0x00, 0x36,
		0x02, 0x01, 0x01,
		0x04, 0x06, 0x70, 0x75, 0x62, 0x6c, 0x69, 0x63,
		0xa2, 0x82, 0x00, 0x27,
		0x02, 0x01, 0x01,
		0x02, 0x01, 0x00,
		0x02, 0x01, 0x00,
		0x30, 0x82, 0x00, 0x1a,
		0x30, 0x82, 0x00, 0x16,
		0x06, 0x08, 0x2b, 0x06, 0x01, 0x02, 0x01, 0x01, 0x05, 0x00,
		0x04, 0x0a, 0x63, 0x69, 0x73, 0x63, 0x6f, 0x2d, 0x37, 0x35, 0x31, 0x33,
	}

	gomock.InOrder(
		mockConn.EXPECT().SetDeadline(gomock.Any()).Return(nil),
		mockConn.EXPECT().Write(getRequest).Return(40, nil),
		mockConn.EXPECT().Read(gomock.Any()).DoAndReturn(
			func(input []byte) (int, error) {
				copy(input, getResponse)
				return len(getResponse), nil
			}),
		mockConn.EXPECT().Close().Return(nil),
	)

	m := newTestSession(mockConn, NewStaticIDSource(1))
	defer m.Close()

	tv, err := m.Get(context.Background(), "1.3.6.1.2.1.1.5.0")
	assert.NoError(t, err)
	assert.Equal(t, OctetString, tv.Type)
	assert.Equal(t, "cisco-7513", string(tv.Value.([]byte)))
}

func TestMultiGetCardinalityMismatch(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	mockConn := mocks.NewMockConn(mockCtrl)

	// Same shape as TestGet's response, but the caller asked for two oids.
	getResponse := []byte{
		0x30, 0x82, 0x00, 0x36,
		0x02, 0x01, 0x01,
		0x04, 0x06, 0x70, 0x75, 0x62, 0x6c, 0x69, 0x63,
		0xa2, 0x82, 0x00, 0x27,
		0x02, 0x01, 0x01,
		0x02, 0x01, 0x00,
		0x02, 0x01, 0x00,
		0x30, 0x82, 0x00, 0x1a,
		0x30, 0x82, 0x00, 0x16,
		0x06, 0x08, 0x2b, 0x06, 0x01, 0x02, 0x01, 0x01, 0x05, 0x00,
		0x04, 0x0a, 0x63, 0x69, 0x73, 0x63, 0x6f, 0x2d, 0x37, 0x35, 0x31, 0x33,
	}

	mockConn.EXPECT().SetDeadline(gomock.Any()).Return(nil)
	mockConn.EXPECT().Write(gomock.Any()).Return(0, nil)
	mockConn.EXPECT().Read(gomock.Any()).DoAndReturn(
		func(input []byte) (int, error) {
			copy(input, getResponse)
			return len(getResponse), nil
		})

	m := newTestSession(mockConn, NewStaticIDSource(1))
	_, err := m.MultiGet(context.Background(), []string{"1.3.6.1.2.1.1.5.0", "1.3.6.1.2.1.1.6.0"})
	assert.Error(t, err)
	var se *SnmpError
	assert.ErrorAs(t, err, &se)
}

func TestGetNext(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	mockConn := mocks.NewMockConn(mockCtrl)

	getRequest := []byte{
		0x30, 0x28,
		0x02, 0x01, 0x01,
		0x04, 0x07, 0x70, 0x72, 0x69, 0x76, 0x61, 0x74, 0x65,
		0xa1, 0x1a,
		0x02, 0x01, 0x01,
		0x02, 0x01, 0x00,
		0x02, 0x01, 0x00,
		0x30, 0x0f,
		0x30, 0x0d,
		0x06, 0x09, 0x2b, 0x06, 0x01, 0x06, 0x03, 0x0c, 0x01, 0x05, 0x00,
		0x05, 0x00,
	}

	getResponse := []byte{
		0x30, 0x28,
		0x02, 0x01, 0x01,
		0x04, 0x07, 0x70, 0x72, 0x69, 0x76, 0x61, 0x74, 0x65,
		0xa2, 0x1a,
		0x02, 0x01, 0x01,
		0x02, 0x01, 0x00,
		0x02, 0x01, 0x00,
		0x30, 0x0f,
		0x30, 0x0d,
		// Object Identifier, Length = 9, Value = 1.3.6.1.6.3.12.1.6.0 (successor)
		0x06, 0x09, 0x2b, 0x06, 0x01, 0x06, 0x03, 0x0c, 0x01, 0x06, 0x00,
		0x05, 0x00,
	}

	gomock.InOrder(
		mockConn.EXPECT().SetDeadline(gomock.Any()).Return(nil),
		mockConn.EXPECT().Write(getRequest).Return(len(getRequest), nil),
		mockConn.EXPECT().Read(gomock.Any()).DoAndReturn(
			func(input []byte) (int, error) {
				copy(input, getResponse)
				return len(getResponse), nil
			}),
	)

	config := defaultConfig
	config.address = "localhost:161"
	config.community = "private"
	config.trace = DiagnosticLoggingHooks
	m := &sessionImpl{config: &config, conn: mockConn, ids: NewStaticIDSource(1)}

	vb, err := m.GetNext(context.Background(), "1.3.6.1.6.3.12.1.5.0")
	assert.NoError(t, err)
	assert.Equal(t, "1.3.6.1.6.3.12.1.6.0", vb.OID.String())
	assert.Equal(t, Null, vb.TypedValue.Type)
}

func TestEndOfMib(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	mockConn := mocks.NewMockConn(mockCtrl)

	getRequest := []byte{
		0x30, 0x28,
		0x02, 0x01, 0x01,
		0x04, 0x07, 0x70, 0x72, 0x69, 0x76, 0x61, 0x74, 0x65,
		0xa1, 0x1a,
		0x02, 0x01, 0x01,
		0x02, 0x01, 0x00,
		0x02, 0x01, 0x00,
		0x30, 0x0f,
		0x30, 0x0d,
		0x06, 0x09, 0x2b, 0x06, 0x01, 0x06, 0x03, 0x0c, 0x01, 0x05, 0x00,
		0x05, 0x00,
	}

	getResponse := []byte{
		0x30, 0x28,
		0x02, 0x01, 0x01,
		0x04, 0x07, 0x70, 0x72, 0x69, 0x76, 0x61, 0x74, 0x65,
		0xa2, 0x1a,
		0x02, 0x01, 0x01,
		0x02, 0x01, 0x00,
		0x02, 0x01, 0x00,
		0x30, 0x0f,
		0x30, 0x0d,
		0x06, 0x09, 0x2b, 0x06, 0x01, 0x06, 0x03, 0x0c, 0x01, 0x05, 0x00,
		// Value Type = End Of Mib View, Length = 0
		0x82, 0x00,
	}

	gomock.InOrder(
		mockConn.EXPECT().SetDeadline(gomock.Any()).Return(nil),
		mockConn.EXPECT().Write(getRequest).Return(len(getRequest), nil),
		mockConn.EXPECT().Read(gomock.Any()).DoAndReturn(
			func(input []byte) (int, error) {
				copy(input, getResponse)
				return len(getResponse), nil
			}),
	)

	config := defaultConfig
	config.address = "localhost:161"
	config.community = "private"
	config.trace = DiagnosticLoggingHooks
	m := &sessionImpl{config: &config, conn: mockConn, ids: NewStaticIDSource(1)}

	vb, err := m.GetNext(context.Background(), "1.3.6.1.6.3.12.1.5.0")
	assert.NoError(t, err)
	assert.Equal(t, "1.3.6.1.6.3.12.1.5.0", vb.OID.String())
	assert.Equal(t, EndOfMibView, vb.TypedValue.Type)
	assert.True(t, vb.TypedValue.IsException())
}

func TestNoSuchObject(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	mockConn := mocks.NewMockConn(mockCtrl)

	getRequest := []byte{
		0x30, 0x25,
		0x02, 0x01, 0x01,
		0x04, 0x07, 0x70, 0x72, 0x69, 0x76, 0x61, 0x74, 0x65,
		0xa0, 0x17,
		0x02, 0x01, 0x01,
		0x02, 0x01, 0x00,
		0x02, 0x01, 0x00,
		0x30, 0x0c,
		0x30, 0x0a,
		0x06, 0x06, 0x2b, 0x06, 0x01, 0x02, 0x01, 0x2f,
		0x05, 0x00,
	}

	getResponse := []byte{
		0x30, 0x25,
		0x02, 0x01, 0x01,
		0x04, 0x07, 0x70, 0x72, 0x69, 0x76, 0x61, 0x74, 0x65,
		0xa2, 0x17,
		0x02, 0x01, 0x01,
		0x02, 0x01, 0x00,
		0x02, 0x01, 0x00,
		0x30, 0x0c,
		0x30, 0x0a,
		0x06, 0x06, 0x2b, 0x06, 0x01, 0x02, 0x01, 0x2f,
		// Value Type = No Such Object, Length = 0
		0x80, 0x00,
	}

	gomock.InOrder(
		mockConn.EXPECT().SetDeadline(gomock.Any()).Return(nil),
		mockConn.EXPECT().Write(getRequest).Return(len(getRequest), nil),
		mockConn.EXPECT().Read(gomock.Any()).DoAndReturn(
			func(input []byte) (int, error) {
				copy(input, getResponse)
				return len(getResponse), nil
			}),
	)

	config := defaultConfig
	config.address = "localhost:161"
	config.community = "private"
	config.trace = NoOpLoggingHooks
	m := &sessionImpl{config: &config, conn: mockConn, ids: NewStaticIDSource(1)}

	_, err := m.Get(context.Background(), "1.3.6.1.2.1.47")
	var noSuch *NoSuchOID
	assert.ErrorAs(t, err, &noSuch)
	assert.Equal(t, "1.3.6.1.2.1.47", noSuch.OID.String())
}

func TestRetry(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	mockConn := mocks.NewMockConn(mockCtrl)

	getRequest1 := []byte{
		0x30, 0x26,
		0x02, 0x01, 0x01,
		0x04, 0x06, 0x70, 0x75, 0x62, 0x6c, 0x69, 0x63,
		0xa0, 0x19,
		0x02, 0x01, 0x01,
		0x02, 0x01, 0x00,
		0x02, 0x01, 0x00,
		0x30, 0x0e,
		0x30, 0x0c,
		0x06, 0x08, 0x2b, 0x06, 0x01, 0x02, 0x01, 0x01, 0x05, 0x00,
		0x05, 0x00,
	}

	getRequest2 := []byte{
		0x30, 0x26,
		0x02, 0x01, 0x01,
		0x04, 0x06, 0x70, 0x75, 0x62, 0x6c, 0x69, 0x63,
		0xa0, 0x19,
		// Request ID Type = Integer, Length = 1, Value = 2
		0x02, 0x01, 0x02,
		0x02, 0x01, 0x00,
		0x02, 0x01, 0x00,
		0x30, 0x0e,
		0x30, 0x0c,
		0x06, 0x08, 0x2b, 0x06, 0x01, 0x02, 0x01, 0x01, 0x05, 0x00,
		0x05, 0x00,
	}

	getResponse := []byte{
		0x30, 0x82, 0x00, 0x36,
		0x02, 0x01, 0x01,
		0x04, 0x06, 0x70, 0x75, 0x62, 0x6c, 0x69, 0x63,
		0xa2, 0x82, 0x00, 0x27,
		// Request ID Type = Integer, Length = 1, Value = 2
		0x02, 0x01, 0x02,
		0x02, 0x01, 0x00,
		0x02, 0x01, 0x00,
		0x30, 0x82, 0x00, 0x1a,
		0x30, 0x82, 0x00, 0x16,
		0x06, 0x08, 0x2b, 0x06, 0x01, 0x02, 0x01, 0x01, 0x05, 0x00,
		0x04, 0x0a, 0x63, 0x69, 0x73, 0x63, 0x6f, 0x2d, 0x37, 0x35, 0x31, 0x33,
	}

	gomock.InOrder(
		mockConn.EXPECT().SetDeadline(gomock.Any()).Return(nil),
		mockConn.EXPECT().Write(getRequest1).Return(40, nil),
		mockConn.EXPECT().Read(gomock.Any()).Return(0, timeoutError{}),
		mockConn.EXPECT().SetDeadline(gomock.Any()).Return(nil),
		mockConn.EXPECT().Write(getRequest2).Return(40, nil),
		mockConn.EXPECT().Read(gomock.Any()).DoAndReturn(
			func(input []byte) (int, error) {
				copy(input, getResponse)
				return len(getResponse), nil
			}),
	)

	config := defaultConfig
	config.address = "localhost:161"
	config.community = "public"
	config.trace = NoOpLoggingHooks
	config.retries = 1
	m := &sessionImpl{config: &config, conn: mockConn, ids: NewStaticIDSource(1, 2)}

	tv, err := m.Get(context.Background(), "1.3.6.1.2.1.1.5.0")
	assert.NoError(t, err)
	assert.Equal(t, "cisco-7513", string(tv.Value.([]byte)))
}

func TestRetriesExhaustedReturnsTimeout(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	mockConn := mocks.NewMockConn(mockCtrl)

	mockConn.EXPECT().SetDeadline(gomock.Any()).Return(nil).Times(2)
	mockConn.EXPECT().Write(gomock.Any()).Return(0, nil).Times(2)
	mockConn.EXPECT().Read(gomock.Any()).Return(0, timeoutError{}).Times(2)

	config := defaultConfig
	config.address = "localhost:161"
	config.community = "public"
	config.trace = NoOpLoggingHooks
	config.retries = 1
	m := &sessionImpl{config: &config, conn: mockConn, ids: NewStaticIDSource(1, 2)}

	_, err := m.Get(context.Background(), "1.3.6.1.2.1.1.5.0")
	var to *Timeout
	assert.ErrorAs(t, err, &to)
}

func TestNetworkWriteFailure(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	mockConn := mocks.NewMockConn(mockCtrl)

	gomock.InOrder(
		mockConn.EXPECT().SetDeadline(gomock.Any()).Return(nil),
		mockConn.EXPECT().Write(gomock.Any()).Return(0, errors.New("snmp failure")),
	)

	m := newTestSession(mockConn, NewStaticIDSource(1))
	_, err := m.Get(context.Background(), "1.3.6.1.2.1.1.5.0")
	assert.EqualError(t, err, "snmp failure")
}

func TestSetDeadlineFailure(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	mockConn := mocks.NewMockConn(mockCtrl)

	mockConn.EXPECT().SetDeadline(gomock.Any()).Return(errors.New("snmp failure"))

	m := newTestSession(mockConn, NewStaticIDSource(1))
	_, err := m.Get(context.Background(), "1.3.6.1.2.1.1.5.0")
	assert.EqualError(t, err, "snmp failure")
}

func TestNetworkReadFailure(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	mockConn := mocks.NewMockConn(mockCtrl)

	gomock.InOrder(
		mockConn.EXPECT().SetDeadline(gomock.Any()).Return(nil),
		mockConn.EXPECT().Write(gomock.Any()).Return(0, nil),
		mockConn.EXPECT().Read(gomock.Any()).Return(0, errors.New("snmp failure")),
	)

	m := newTestSession(mockConn, NewStaticIDSource(1))
	_, err := m.Get(context.Background(), "1.3.6.1.2.1.1.5.0")
	assert.EqualError(t, err, "snmp failure")
}

func TestSet(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	mockConn := mocks.NewMockConn(mockCtrl)

	setResponse := []byte{
		0x30, 0x82, 0x00, 0x36,
		0x02, 0x01, 0x01,
		0x04, 0x06, 0x70, 0x75, 0x62, 0x6c, 0x69, 0x63,
		0xa2, 0x82, 0x00, 0x27,
		0x02, 0x01, 0x01,
		0x02, 0x01, 0x00,
		0x02, 0x01, 0x00,
		0x30, 0x82, 0x00, 0x1a,
		0x30, 0x82, 0x00, 0x16,
		0x06, 0x08, 0x2b, 0x06, 0x01, 0x02, 0x01, 0x01, 0x05, 0x00,
		0x04, 0x0a, 0x63, 0x69, 0x73, 0x63, 0x6f, 0x2d, 0x37, 0x35, 0x31, 0x33,
	}

	mockConn.EXPECT().SetDeadline(gomock.Any()).Return(nil)
	mockConn.EXPECT().Write(gomock.Any()).Return(0, nil)
	mockConn.EXPECT().Read(gomock.Any()).DoAndReturn(
		func(input []byte) (int, error) {
			copy(input, setResponse)
			return len(setResponse), nil
		})

	m := newTestSession(mockConn, NewStaticIDSource(1))
	tv, err := m.Set(context.Background(), "1.3.6.1.2.1.1.5.0", NewOctetString([]byte("cisco-7513")))
	assert.NoError(t, err)
	assert.Equal(t, "cisco-7513", string(tv.Value.([]byte)))
}

func TestSetRejectsValueWithoutWireType(t *testing.T) {
	m := newTestSession(nil, NewStaticIDSource(1))
	_, err := m.Set(context.Background(), "1.3.6.1.2.1.1.5.0", &TypedValue{Type: NoSuchObject})
	var tf *TypeFault
	assert.ErrorAs(t, err, &tf)
}

func TestMultiWalkRejectsNilOIDs(t *testing.T) {
	m := newTestSession(nil, NewStaticIDSource(1))
	_, err := m.MultiWalk(context.Background(), nil)
	var tf *TypeFault
	assert.ErrorAs(t, err, &tf)
}

func TestExecuteRequestMismatchedRequestID(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	mockConn := mocks.NewMockConn(mockCtrl)

	// Response echoes request-id 99, but the session sent request-id 1.
	mismatched := []byte{
		0x30, 0x82, 0x00, 0x36,
		0x02, 0x01, 0x01,
		0x04, 0x06, 0x70, 0x75, 0x62, 0x6c, 0x69, 0x63,
		0xa2, 0x82, 0x00, 0x27,
		0x02, 0x01, 0x63,
		0x02, 0x01, 0x00,
		0x02, 0x01, 0x00,
		0x30, 0x82, 0x00, 0x1a,
		0x30, 0x82, 0x00, 0x16,
		0x06, 0x08, 0x2b, 0x06, 0x01, 0x02, 0x01, 0x01, 0x05, 0x00,
		0x04, 0x0a, 0x63, 0x69, 0x73, 0x63, 0x6f, 0x2d, 0x37, 0x35, 0x31, 0x33,
	}

	mockConn.EXPECT().SetDeadline(gomock.Any()).Return(nil)
	mockConn.EXPECT().Write(gomock.Any()).Return(0, nil)
	mockConn.EXPECT().Read(gomock.Any()).DoAndReturn(
		func(input []byte) (int, error) {
			copy(input, mismatched)
			return len(mismatched), nil
		})

	m := newTestSession(mockConn, NewStaticIDSource(1))
	_, err := m.Get(context.Background(), "1.3.6.1.2.1.1.5.0")
	var fault *FaultySNMPImplementation
	assert.ErrorAs(t, err, &fault)
}

// TestMultiWalkWarnModeRecoversFromNonIncreasingGetNext drives a real
// nextFetcher (not the fakeFetcher stub below) through Session.MultiWalk, to
// confirm a non-increasing GetNextRequest response only warns and
// terminates its own base under errMode=warn rather than aborting the
// whole walk with a fatal error — MultiGetNext's hard strict-successor
// check must not fire on this path.
func TestMultiWalkWarnModeRecoversFromNonIncreasingGetNext(t *testing.T) {
	mockCtrl := gomock.NewController(t)
	defer mockCtrl.Finish()
	mockConn := mocks.NewMockConn(mockCtrl)

	base := MustParseOID("1.3.6.1.2.1.2.2.1.1")
	successor := MustParseOID("1.3.6.1.2.1.2.2.1.1.1")

	request1, err := buildPacket(SNMPV2C, "public", getNextMessage, 1, []OID{base}, nil, 0, 0)
	assert.NoError(t, err)
	response1, err := buildPacket(SNMPV2C, "public", getResponseMessage, 1, []OID{successor}, []*TypedValue{NewInteger(1)}, 0, 0)
	assert.NoError(t, err)

	request2, err := buildPacket(SNMPV2C, "public", getNextMessage, 2, []OID{successor}, nil, 0, 0)
	assert.NoError(t, err)
	// Looping agent: echoes the requested oid back instead of a successor.
	response2, err := buildPacket(SNMPV2C, "public", getResponseMessage, 2, []OID{successor}, []*TypedValue{NewInteger(2)}, 0, 0)
	assert.NoError(t, err)

	gomock.InOrder(
		mockConn.EXPECT().SetDeadline(gomock.Any()).Return(nil),
		mockConn.EXPECT().Write(request1).Return(len(request1), nil),
		mockConn.EXPECT().Read(gomock.Any()).DoAndReturn(func(b []byte) (int, error) {
			copy(b, response1)
			return len(response1), nil
		}),
		mockConn.EXPECT().SetDeadline(gomock.Any()).Return(nil),
		mockConn.EXPECT().Write(request2).Return(len(request2), nil),
		mockConn.EXPECT().Read(gomock.Any()).DoAndReturn(func(b []byte) (int, error) {
			copy(b, response2)
			return len(response2), nil
		}),
	)

	warnings := 0
	trace := *NoOpLoggingHooks
	trace.Warn = func(location string, config *SessionConfig, msg string) { warnings++ }

	config := defaultConfig
	config.address = "localhost:161"
	config.community = "public"
	config.errMode = ErrModeWarn
	config.trace = &trace
	m := &sessionImpl{config: &config, conn: mockConn, ids: NewStaticIDSource(1, 2)}

	stream, err := m.MultiWalk(context.Background(), []string{base.String()})
	assert.NoError(t, err)

	vb, ok, err := stream.Next(context.Background())
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, successor.String(), vb.OID.String())

	_, ok, err = stream.Next(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 1, warnings)
}

// fakeFetcher drives a WalkStream without a transport, so MultiWalk/BulkWalk
// round-robin and termination logic can be exercised independent of
// executeRequest.
type fakeFetcher struct {
	rounds [][][]VarBind
	call   int
}

func (f *fakeFetcher) Fetch(ctx context.Context, oids []OID) ([][]VarBind, error) {
	if f.call >= len(f.rounds) {
		return nil, errors.New("fakeFetcher: no more rounds scripted")
	}
	round := f.rounds[f.call]
	f.call++
	return round, nil
}

func vb(oidStr string, tv *TypedValue) VarBind {
	return VarBind{OID: MustParseOID(oidStr), TypedValue: tv}
}

func TestWalkStreamSingleBase(t *testing.T) {
	fetcher := &fakeFetcher{
		rounds: [][][]VarBind{
			{{vb("1.3.6.1.2.1.2.2.1.1.1", NewInteger(1))}},
			{{vb("1.3.6.1.2.1.2.2.1.1.2", NewInteger(2))}},
			{{vb("1.3.6.1.2.1.2.3.1.1.1", NewInteger(99))}}, // outside base, terminates
		},
	}
	config := defaultConfig
	stream := newWalkStream([]OID{MustParseOID("1.3.6.1.2.1.2.2.1.1")}, fetcher, &config)

	var got []VarBind
	for {
		v, ok, err := stream.Next(context.Background())
		assert.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Len(t, got, 2)
	assert.Equal(t, "1.3.6.1.2.1.2.2.1.1.1", got[0].OID.String())
	assert.Equal(t, "1.3.6.1.2.1.2.2.1.1.2", got[1].OID.String())
}

func TestWalkStreamEndOfMibView(t *testing.T) {
	fetcher := &fakeFetcher{
		rounds: [][][]VarBind{
			{{vb("1.3.6.1.2.1.2.2.1.1.1", NewInteger(1))}},
			{{vb("1.3.6.1.2.1.2.2.1.1.1", &TypedValue{Type: EndOfMibView})}},
		},
	}
	config := defaultConfig
	stream := newWalkStream([]OID{MustParseOID("1.3.6.1.2.1.2.2.1.1")}, fetcher, &config)

	v, ok, err := stream.Next(context.Background())
	assert.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "1.3.6.1.2.1.2.2.1.1.1", v.OID.String())

	_, ok, err = stream.Next(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestWalkStreamStrictModeRejectsNonIncrease(t *testing.T) {
	fetcher := &fakeFetcher{
		rounds: [][][]VarBind{
			{{vb("1.3.6.1.2.1.2.2.1.1.1", NewInteger(1))}},
			{{vb("1.3.6.1.2.1.2.2.1.1.1", NewInteger(1))}}, // non-increasing
		},
	}
	config := defaultConfig
	config.errMode = ErrModeStrict
	stream := newWalkStream([]OID{MustParseOID("1.3.6.1.2.1.2.2.1.1")}, fetcher, &config)

	_, _, err := stream.Next(context.Background())
	assert.NoError(t, err)
	_, _, err = stream.Next(context.Background())
	var fault *FaultySNMPImplementation
	assert.ErrorAs(t, err, &fault)
}

func TestWalkStreamWarnModeTerminatesBaseOnly(t *testing.T) {
	fetcher := &fakeFetcher{
		rounds: [][][]VarBind{
			{{vb("1.3.6.1.2.1.2.2.1.1.1", NewInteger(1))}},
			{{vb("1.3.6.1.2.1.2.2.1.1.1", NewInteger(1))}}, // non-increasing
		},
	}
	config := defaultConfig
	config.errMode = ErrModeWarn
	config.trace = NoOpLoggingHooks
	stream := newWalkStream([]OID{MustParseOID("1.3.6.1.2.1.2.2.1.1")}, fetcher, &config)

	_, ok, err := stream.Next(context.Background())
	assert.NoError(t, err)
	assert.True(t, ok)

	_, ok, err = stream.Next(context.Background())
	assert.NoError(t, err)
	assert.False(t, ok)
}

func TestWalkStreamOverlappingBasesDedup(t *testing.T) {
	// Two overlapping bases both reach "...1.1.1" in round one; it must be
	// yielded exactly once across the whole stream, under whichever base's
	// queue reaches it first in ascending base order.
	fetcher := &fakeFetcher{
		rounds: [][][]VarBind{
			{
				{vb("1.3.6.1.2.1.2.2.1.1.1", NewInteger(1))},
				{vb("1.3.6.1.2.1.2.2.1.1.1", NewInteger(1))},
			},
			{
				{{OID: MustParseOID("1.3.6.1.2.1.2.2.1.1.1"), TypedValue: &TypedValue{Type: EndOfMibView}}},
				{{OID: MustParseOID("1.3.6.1.2.1.2.2.1.1.1"), TypedValue: &TypedValue{Type: EndOfMibView}}},
			},
		},
	}

	config := defaultConfig
	stream := newWalkStream([]OID{
		MustParseOID("1.3.6.1.2.1.2.2.1.1"),
		MustParseOID("1.3.6.1.2.1.2.2.1.1.1"),
	}, fetcher, &config)

	var got []VarBind
	for i := 0; i < 10; i++ {
		v, ok, err := stream.Next(context.Background())
		if err != nil || !ok {
			break
		}
		got = append(got, v)
	}
	seen := map[string]int{}
	for _, v := range got {
		seen[v.OID.String()]++
	}
	assert.Equal(t, 1, seen["1.3.6.1.2.1.2.2.1.1.1"])
}

func TestTimeoutErrorImplementsNetError(t *testing.T) {
	var err error = timeoutError{}
	assert.Equal(t, "i/o timeout", err.Error())
	ne, ok := err.(net.Error)
	assert.True(t, ok)
	assert.True(t, ne.Timeout())
}
