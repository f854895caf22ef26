// -*- Mode: Go; indent-tabs-mode: t -*-
//
// Copyright (C) 2018 Circutor S.A.
//
// SPDX-License-Identifier: Apache-2.0

// Package bacnet implements the minimum BACnet/IP frame set this gateway
// requires: BVLC+NPDU+APDU framing, Who-Is/I-Am discovery, and
// ReadProperty/WriteProperty with invoke-id matching. Frame layout is
// grounded on the BVLC/NPDU/APDU construction in
// other_examples/d46fda21_..._bacnet.go.go (BVLC type byte 0x81, NPDU
// version/control bytes, context-tagged object-id/property encoding) and
// cross-checked against other_examples/2e7d4c82_edgeo-scada-bacnet__bacnet-client.go.go
// for invoke-id bookkeeping.
package bacnet

import (
	"encoding/binary"
	"math"

	"github.com/circutor-labs/protogateway/internal/common"
)

const (
	bvlcType              byte = 0x81
	bvlcFuncUnicastNPDU    byte = 0x0A
	bvlcFuncBroadcastNPDU  byte = 0x0B

	npduVersion byte = 0x01

	pduTypeUnconfirmedReq byte = 0x01 << 4
	pduTypeConfirmedReq   byte = 0x00 << 4
	pduTypeSimpleACK      byte = 0x02 << 4
	pduTypeComplexACK     byte = 0x03 << 4
	pduTypeError          byte = 0x05 << 4

	serviceWhoIs         byte = 0x08
	serviceIAm           byte = 0x00
	serviceReadProperty  byte = 0x0C
	serviceWriteProperty byte = 0x0F
)

// ObjectType is one of the BACnet object types this codec recognizes.
type ObjectType string

const (
	ObjectAnalogInput    ObjectType = "AI"
	ObjectAnalogValue    ObjectType = "AV"
	ObjectBinaryInput    ObjectType = "BI"
	ObjectBinaryValue    ObjectType = "BV"
	ObjectMultiStateValue ObjectType = "MSV"
)

var objectTypeCode = map[ObjectType]uint32{
	ObjectAnalogInput:     0,
	ObjectAnalogValue:     2,
	ObjectBinaryInput:     3,
	ObjectBinaryValue:     5,
	ObjectMultiStateValue: 19,
}

var objectTypeFromCode = func() map[uint32]ObjectType {
	m := make(map[uint32]ObjectType, len(objectTypeCode))
	for k, v := range objectTypeCode {
		m[v] = k
	}
	return m
}()

// ObjectID is a (object_type, instance) BACnet object identifier.
type ObjectID struct {
	Type     ObjectType
	Instance uint32
}

func encodeObjectID(id ObjectID) [4]byte {
	code, ok := objectTypeCode[id.Type]
	if !ok {
		code = 0
	}
	value := (code << 22) | (id.Instance & 0x3FFFFF)
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], value)
	return b
}

func decodeObjectID(b []byte) ObjectID {
	value := binary.BigEndian.Uint32(b)
	code := value >> 22
	instance := value & 0x3FFFFF
	return ObjectID{Type: objectTypeFromCode[code], Instance: instance}
}

func wrapBVLC(function byte, npduAndAPDU []byte) []byte {
	out := make([]byte, 4+len(npduAndAPDU))
	out[0] = bvlcType
	out[1] = function
	length := uint16(len(out))
	binary.BigEndian.PutUint16(out[2:4], length)
	copy(out[4:], npduAndAPDU)
	return out
}

// EncodeWhoIs builds the unconfirmed Who-Is broadcast APDU (unconfirmed
// service choice 0x08), ready to send as a UDP broadcast datagram.
func EncodeWhoIs() []byte {
	npduAndAPDU := []byte{
		npduVersion,
		0x00, // control: no special fields, no reply expected
		pduTypeUnconfirmedReq,
		serviceWhoIs,
	}
	return wrapBVLC(bvlcFuncBroadcastNPDU, npduAndAPDU)
}

// IAm is the decoded content of an inbound I-Am frame.
type IAm struct {
	DeviceInstance    uint32
	MaxAPDULength     uint32
	SegmentationSupported bool
	VendorID          uint32
}

// DecodeIAm parses an inbound BVLC+NPDU+APDU frame expected to carry an
// I-Am service (APDU `0x10 0x00` then device instance, max
// APDU length, segmentation support, vendor id, each as an unsigned
// context/application tag followed by its value bytes).
func DecodeIAm(frame []byte) (*IAm, error) {
	apdu, err := unwrapToAPDU(frame)
	if err != nil {
		return nil, err
	}
	if len(apdu) < 2 || apdu[0] != pduTypeUnconfirmedReq || apdu[1] != serviceIAm {
		return nil, common.NewDecodeError("frame is not an I-Am APDU", nil)
	}

	cursor := 2
	deviceID, n, err := readTaggedUint(apdu, cursor, 4) // object-id application tag, 4-byte value
	if err != nil {
		return nil, err
	}
	cursor += n

	maxAPDU, n, err := readTaggedUint(apdu, cursor, 0)
	if err != nil {
		return nil, err
	}
	cursor += n

	segSupport, n, err := readTaggedUint(apdu, cursor, 0)
	if err != nil {
		return nil, err
	}
	cursor += n

	vendorID, _, err := readTaggedUint(apdu, cursor, 0)
	if err != nil {
		return nil, err
	}

	return &IAm{
		DeviceInstance:        deviceID & 0x3FFFFF,
		MaxAPDULength:         maxAPDU,
		SegmentationSupported: segSupport != 3, // BACnet: 3 == no segmentation
		VendorID:              vendorID,
	}, nil
}

// readTaggedUint reads one application-tagged unsigned value starting at
// offset. When fixedLen is non-zero (used for the 4-byte object identifier
// tag), that length is assumed instead of being read from the tag byte.
func readTaggedUint(data []byte, offset int, fixedLen int) (value uint32, consumed int, err error) {
	if offset >= len(data) {
		return 0, 0, common.NewDecodeError("truncated BACnet APDU while reading tag", nil)
	}
	tag := data[offset]
	length := int(tag & 0x07)
	if fixedLen != 0 {
		length = fixedLen
	}
	start := offset + 1
	if start+length > len(data) {
		return 0, 0, common.NewDecodeError("truncated BACnet APDU while reading tagged value", nil)
	}
	var v uint32
	for i := 0; i < length; i++ {
		v = v<<8 | uint32(data[start+i])
	}
	return v, 1 + length, nil
}

func unwrapToAPDU(frame []byte) ([]byte, error) {
	if len(frame) < 4 || frame[0] != bvlcType {
		return nil, common.NewDecodeError("not a BACnet/IP (BVLC) frame", nil)
	}
	length := binary.BigEndian.Uint16(frame[2:4])
	if int(length) != len(frame) {
		return nil, common.NewDecodeError("BVLC length field does not match frame size", nil)
	}
	npdu := frame[4:]
	if len(npdu) < 2 || npdu[0] != npduVersion {
		return nil, common.NewDecodeError("unsupported or missing NPDU version", nil)
	}
	control := npdu[1]
	offset := 2
	if control&0x20 != 0 { // destination present
		if len(npdu) < offset+3 {
			return nil, common.NewDecodeError("truncated NPDU destination fields", nil)
		}
		dlen := int(npdu[offset+2])
		offset += 3 + dlen + 1 // + hop count
	}
	if control&0x08 != 0 { // source present
		if len(npdu) < offset+3 {
			return nil, common.NewDecodeError("truncated NPDU source fields", nil)
		}
		slen := int(npdu[offset+2])
		offset += 3 + slen
	}
	if offset > len(npdu) {
		return nil, common.NewDecodeError("NPDU offset beyond frame bounds", nil)
	}
	return npdu[offset:], nil
}

// EncodeReadProperty builds a confirmed ReadProperty request (service
// choice 0x0C) carrying the given invoke id, object, and property.
func EncodeReadProperty(invokeID byte, object ObjectID, propertyID byte) []byte {
	objBytes := encodeObjectID(object)
	apdu := []byte{
		pduTypeConfirmedReq | 0x04, // segmentation flags = none, max-segments
		0x05,                       // max APDU size code (up to 1476 bytes)
		invokeID,
		serviceReadProperty,
		0x0C, // context tag 0, object identifier, length 4
	}
	apdu = append(apdu, objBytes[:]...)
	apdu = append(apdu, 0x19, propertyID) // context tag 1, property identifier

	npdu := []byte{npduVersion, 0x04}
	npdu = append(npdu, apdu...)
	return wrapBVLC(bvlcFuncUnicastNPDU, npdu)
}

// EncodeWriteProperty builds a confirmed WriteProperty request (service
// choice 0x0F) carrying a single real (float32) application value.
func EncodeWriteProperty(invokeID byte, object ObjectID, propertyID byte, value float32) []byte {
	objBytes := encodeObjectID(object)
	bits := math.Float32bits(value)

	apdu := []byte{
		pduTypeConfirmedReq | 0x04,
		0x05,
		invokeID,
		serviceWriteProperty,
		0x0C,
	}
	apdu = append(apdu, objBytes[:]...)
	apdu = append(apdu, 0x19, propertyID)
	apdu = append(apdu, 0x3E) // opening tag 3: property value
	apdu = append(apdu, 0x44, byte(bits>>24), byte(bits>>16), byte(bits>>8), byte(bits)) // application tag 4 (real), 4 bytes
	apdu = append(apdu, 0x3F)                                                           // closing tag 3

	npdu := []byte{npduVersion, 0x04}
	npdu = append(npdu, apdu...)
	return wrapBVLC(bvlcFuncUnicastNPDU, npdu)
}

// AckKind distinguishes Simple-ACK from Complex-ACK responses.
type AckKind string

const (
	AckSimple  AckKind = "simple"
	AckComplex AckKind = "complex"
)

// Ack is a decoded confirmed-service acknowledgement.
type Ack struct {
	Kind     AckKind
	InvokeID byte
	Service  byte
	Payload  []byte // present only for Complex-ACK; the tagged property value
}

// DecodeAck parses an inbound Simple-ACK or Complex-ACK frame and matches
// it against the expected invoke id: responses are matched by invoke_id
// within the caller's timeout window.
func DecodeAck(frame []byte, expectedInvokeID byte) (*Ack, error) {
	apdu, err := unwrapToAPDU(frame)
	if err != nil {
		return nil, err
	}
	if len(apdu) < 2 {
		return nil, common.NewDecodeError("truncated ACK APDU", nil)
	}

	pduType := apdu[0] & 0xF0
	switch pduType {
	case pduTypeSimpleACK:
		invokeID := apdu[1]
		if invokeID != expectedInvokeID {
			return nil, common.NewDecodeError("ACK invoke id does not match pending request", nil)
		}
		service := byte(0)
		if len(apdu) > 2 {
			service = apdu[2]
		}
		return &Ack{Kind: AckSimple, InvokeID: invokeID, Service: service}, nil
	case pduTypeComplexACK:
		invokeID := apdu[1]
		if invokeID != expectedInvokeID {
			return nil, common.NewDecodeError("ACK invoke id does not match pending request", nil)
		}
		service := apdu[2]
		return &Ack{Kind: AckComplex, InvokeID: invokeID, Service: service, Payload: apdu[3:]}, nil
	case pduTypeError:
		return nil, common.NewProtocolException("BACnet peer returned an Error-PDU", int(apdu[1]))
	default:
		return nil, common.NewDecodeError("frame is neither Simple-ACK nor Complex-ACK", nil)
	}
}

// DecodeReadPropertyValue extracts the application-tagged value from a
// Complex-ACK ReadProperty payload, returning it as a float64 for
// uniform handling alongside the other protocol codecs.
func DecodeReadPropertyValue(payload []byte) (float64, error) {
	// payload: [0x0C obj(4)] [0x19 propertyID] [0x3E opening][tag][value...][0x3F closing]
	idx := 0
	for idx < len(payload) {
		tag := payload[idx]
		if tag == 0x3E { // opening tag 3: property value
			idx++
			break
		}
		// skip context-tagged fields we don't need (object id = 5 bytes incl tag, property id = 2 bytes incl tag)
		length := int(tag & 0x07)
		idx += 1 + length
	}
	if idx >= len(payload) {
		return 0, common.NewDecodeError("ReadProperty ACK missing property value", nil)
	}
	appTag := payload[idx]
	idx++
	switch appTag {
	case 0x44: // real (float32)
		if idx+4 > len(payload) {
			return 0, common.NewDecodeError("truncated real value in ReadProperty ACK", nil)
		}
		bits := binary.BigEndian.Uint32(payload[idx : idx+4])
		return float64(math.Float32frombits(bits)), nil
	case 0x21: // unsigned, 1 byte
		if idx+1 > len(payload) {
			return 0, common.NewDecodeError("truncated unsigned value in ReadProperty ACK", nil)
		}
		return float64(payload[idx]), nil
	default:
		return 0, common.NewDecodeError("unsupported application tag in ReadProperty ACK", nil)
	}
}
