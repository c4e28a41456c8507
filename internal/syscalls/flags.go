package syscalls

// MountFlag is one named mount flag bit. Flags are explicit (name → bit)
// data combined by bitwise OR: a prior packed-struct field-order bug
// silently broke MS_PRIVATE|MS_REC, so bit values are pinned here as
// constants, never as struct field order.
type MountFlag uintptr

const (
	MountRDOnly      MountFlag = 1
	MountNoSuid      MountFlag = 2
	MountNoDev       MountFlag = 4
	MountNoExec      MountFlag = 8
	MountSynchronous MountFlag = 16
	MountRemount     MountFlag = 32
	MountMandlock    MountFlag = 64
	MountDirsync     MountFlag = 128
	MountNoSymfollow MountFlag = 256
	MountNoAtime     MountFlag = 1024
	MountNoDiratime  MountFlag = 2048
	MountBind        MountFlag = 4096
	MountMove        MountFlag = 8192
	MountRec         MountFlag = 16384
	MountSilent      MountFlag = 32768
	MountPosixACL    MountFlag = 1 << 16
	MountUnbindable  MountFlag = 1 << 17
	MountPrivate     MountFlag = 1 << 18
	MountSlave       MountFlag = 1 << 19
	MountShared      MountFlag = 1 << 20
	MountRelatime    MountFlag = 1 << 21
	MountKernmount   MountFlag = 1 << 22
	MountIVersion    MountFlag = 1 << 23
	MountStrictatime MountFlag = 1 << 24
	MountLazytime    MountFlag = 1 << 25
)

// EncodeMountFlags ORs together the given named flags into the raw value
// the mount(2) syscall expects.
func EncodeMountFlags(flags ...MountFlag) uintptr {
	var v uintptr
	for _, f := range flags {
		v |= uintptr(f)
	}
	return v
}

// UnshareFlag is one named clone/unshare namespace flag bit.
type UnshareFlag uintptr

const (
	CloneNewNS     UnshareFlag = 0x00020000
	CloneNewCgroup UnshareFlag = 0x02000000
	CloneNewUTS    UnshareFlag = 0x04000000
	CloneNewIPC    UnshareFlag = 0x08000000
	CloneNewUser   UnshareFlag = 0x10000000
	CloneNewPID    UnshareFlag = 0x20000000
	CloneNewNet    UnshareFlag = 0x40000000
)

// EncodeUnshareFlags ORs together the given named namespace flags.
func EncodeUnshareFlags(flags ...UnshareFlag) uintptr {
	var v uintptr
	for _, f := range flags {
		v |= uintptr(f)
	}
	return v
}

// Umount2Flag is one named umount2(2) flag bit.
type Umount2Flag int

const (
	UmountForce   Umount2Flag = 1
	UmountDetach  Umount2Flag = 2
	UmountExpire  Umount2Flag = 4
	UmountNoFollow Umount2Flag = 8
)

// EncodeUmount2Flags ORs together the given named umount2 flags.
func EncodeUmount2Flags(flags ...Umount2Flag) int {
	var v int
	for _, f := range flags {
		v |= int(f)
	}
	return v
}

// Signal is one named POSIX signal used by the process terminator.
type Signal int

const (
	SIGHUP  Signal = 1
	SIGINT  Signal = 2
	SIGQUIT Signal = 3
	SIGKILL Signal = 9
	SIGTERM Signal = 15
)
