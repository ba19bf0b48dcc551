// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package vulkan

import (
	"errors"
	"testing"

	vk "github.com/goki/vulkan"

	"github.com/gogpu/ember"
)

func TestMappedRangeAlignsOffsetToAtom(t *testing.T) {
	b := &DeviceBuffer{
		dev:  &Device{atomSize: 64},
		desc: ember.DeviceBufferDescriptor{Size: 4096},
	}
	cases := []struct {
		offset int
		want   vk.DeviceSize
	}{
		{0, 0},
		{63, 0},
		{64, 64},
		{100, 64},
		{129, 128},
	}
	for _, tc := range cases {
		mr, err := b.mappedRange(ember.Range{Offset: tc.offset, Length: 8})
		if err != nil {
			t.Fatalf("mappedRange(offset %d) error: %v", tc.offset, err)
		}
		if mr.Offset != tc.want {
			t.Errorf("mappedRange(offset %d).Offset = %d, want %d", tc.offset, mr.Offset, tc.want)
		}
		if mr.Size != vk.DeviceSize(vk.WholeSize) {
			t.Errorf("mappedRange(offset %d).Size = %d, want WholeSize", tc.offset, mr.Size)
		}
	}
}

func TestMappedRangeEmptyCoversWholeBuffer(t *testing.T) {
	b := &DeviceBuffer{
		dev:  &Device{atomSize: 64},
		desc: ember.DeviceBufferDescriptor{Size: 256},
	}
	mr, err := b.mappedRange(ember.Range{})
	if err != nil {
		t.Fatalf("mappedRange(empty) error: %v", err)
	}
	if mr.Offset != 0 || mr.Size != vk.DeviceSize(vk.WholeSize) {
		t.Errorf("mappedRange(empty) = offset %d size %d, want 0/WholeSize", mr.Offset, mr.Size)
	}
}

func TestMappedRangeOutOfBounds(t *testing.T) {
	b := &DeviceBuffer{
		dev:  &Device{atomSize: 64},
		desc: ember.DeviceBufferDescriptor{Size: 128},
	}
	if _, err := b.mappedRange(ember.Range{Offset: 120, Length: 16}); !errors.Is(err, ember.ErrBufferRangeOutOfBounds) {
		t.Fatalf("err = %v, want ErrBufferRangeOutOfBounds", err)
	}
	if _, err := b.mappedRange(ember.Range{Offset: -8, Length: 16}); !errors.Is(err, ember.ErrBufferRangeOutOfBounds) {
		t.Fatalf("negative offset err = %v, want ErrBufferRangeOutOfBounds", err)
	}
}
