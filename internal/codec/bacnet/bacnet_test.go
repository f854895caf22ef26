// -*- Mode: Go; indent-tabs-mode: t -*-
//
// SPDX-License-Identifier: Apache-2.0

package bacnet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeWhoIs_BuildsValidBVLCFrame(t *testing.T) {
	frame := EncodeWhoIs()
	assert.Equal(t, byte(0x81), frame[0])
	assert.Equal(t, bvlcFuncBroadcastNPDU, frame[1])
	assert.Equal(t, len(frame), int(frame[2])<<8|int(frame[3]))
}

// buildIAmFrame hand-assembles an I-Am response frame for a simulated
// device, mirroring what a BACnet simulator would send back to a Who-Is.
func buildIAmFrame(deviceInstance uint32, vendorID uint32) []byte {
	objID := encodeObjectID(ObjectID{Type: "DEV", Instance: deviceInstance})
	apdu := []byte{pduTypeUnconfirmedReq, serviceIAm}
	apdu = append(apdu, 0x0C) // context tag 0: object identifier, length 4
	apdu = append(apdu, objID[:]...)
	apdu = append(apdu, 0x22, 0x04, 0x00) // max APDU length, 2 bytes: 1024
	apdu = append(apdu, 0x91, 0x00)       // segmentation supported: 0 = both
	apdu = append(apdu, 0x22, byte(vendorID>>8), byte(vendorID))

	npdu := []byte{npduVersion, 0x00}
	npdu = append(npdu, apdu...)
	return wrapBVLC(bvlcFuncBroadcastNPDU, npdu)
}

func TestWhoIsIAm_RoundTrip(t *testing.T) {
	frame := buildIAmFrame(1234, 260)
	iam, err := DecodeIAm(frame)
	require.NoError(t, err)
	assert.Equal(t, uint32(1234), iam.DeviceInstance)
	assert.Equal(t, uint32(260), iam.VendorID)
}

func TestEncodeReadProperty_CarriesInvokeID(t *testing.T) {
	frame := EncodeReadProperty(42, ObjectID{Type: ObjectAnalogInput, Instance: 1}, 85)
	assert.Equal(t, byte(0x81), frame[0])
	assert.Greater(t, len(frame), 10)
	// BVLC (4 bytes) + NPDU (2 bytes) + PDU type + max-APDU byte, then the invoke id.
	assert.Equal(t, byte(42), frame[8])
}

func TestDecodeAck_SimpleACKMatchesInvokeID(t *testing.T) {
	apdu := []byte{pduTypeSimpleACK, 42, serviceWriteProperty}
	npdu := append([]byte{npduVersion, 0x00}, apdu...)
	frame := wrapBVLC(bvlcFuncUnicastNPDU, npdu)

	ack, err := DecodeAck(frame, 42)
	require.NoError(t, err)
	assert.Equal(t, AckSimple, ack.Kind)
}

func TestDecodeAck_RejectsMismatchedInvokeID(t *testing.T) {
	apdu := []byte{pduTypeSimpleACK, 42, serviceWriteProperty}
	npdu := append([]byte{npduVersion, 0x00}, apdu...)
	frame := wrapBVLC(bvlcFuncUnicastNPDU, npdu)

	_, err := DecodeAck(frame, 99)
	require.Error(t, err)
}

func TestComplexACK_ReadPropertyValueRoundTrip(t *testing.T) {
	objID := encodeObjectID(ObjectID{Type: ObjectAnalogInput, Instance: 1})
	payload := []byte{0x0C}
	payload = append(payload, objID[:]...)
	payload = append(payload, 0x19, 85)
	payload = append(payload, 0x3E, 0x44, 0x41, 0xB4, 0x00, 0x00, 0x3F) // real 22.5

	apdu := []byte{pduTypeComplexACK, 42, serviceReadProperty}
	apdu = append(apdu, payload...)
	npdu := append([]byte{npduVersion, 0x00}, apdu...)
	frame := wrapBVLC(bvlcFuncUnicastNPDU, npdu)

	ack, err := DecodeAck(frame, 42)
	require.NoError(t, err)
	require.Equal(t, AckComplex, ack.Kind)

	value, err := DecodeReadPropertyValue(ack.Payload)
	require.NoError(t, err)
	assert.InDelta(t, 22.5, value, 1e-4)
}
