package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/tobiasfamos/fs3/fs3"
	"github.com/tobiasfamos/fs3/util"
)

// CLI interprets shell commands against a driver.
type CLI struct {
	driver *fs3.Driver
	closer io.Closer
}

// NewCLI wraps driver. closer, if not nil, is closed on exit after the disk
// is unmounted.
func NewCLI(driver *fs3.Driver, closer io.Closer) *CLI {
	return &CLI{driver: driver, closer: closer}
}

// Close unmounts the disk if needed and releases the connection.
func (cli *CLI) Close() error {
	if cli.driver.Mounted() {
		if err := cli.driver.Unmount(); err != nil {
			return err
		}
	}
	if c := cli.driver.Cache(); c != nil && c.Initialized() {
		if err := c.Close(); err != nil {
			return err
		}
	}
	if cli.closer != nil {
		return cli.closer.Close()
	}
	return nil
}

// Handle executes one command line. The second result is false once the
// shell should stop.
func (cli *CLI) Handle(cmd string) (string, bool) {
	parts := strings.Fields(cmd)
	if len(parts) == 0 {
		return cli.Help(), true
	}

	switch parts[0] {
	case "mount":
		if err := cli.driver.Mount(); err != nil {
			return fmt.Sprintf("Error mounting disk: %v", err), true
		}
		return "Disk mounted", true

	case "unmount":
		if err := cli.driver.Unmount(); err != nil {
			return fmt.Sprintf("Error unmounting disk: %v", err), true
		}
		return "Disk unmounted", true

	case "open":
		if len(parts) != 2 {
			return cli.Help(), true
		}
		fd, err := cli.driver.Open(parts[1])
		if err != nil {
			return fmt.Sprintf("Error opening %s: %v", parts[1], err), true
		}
		return fmt.Sprintf("Opened %s as fd %d", parts[1], fd), true

	case "close":
		if len(parts) != 2 {
			return cli.Help(), true
		}
		fd, err := parseHandle(parts[1])
		if err != nil {
			return err.Error(), true
		}
		if err := cli.driver.Close(fd); err != nil {
			return fmt.Sprintf("Error closing fd %d: %v", fd, err), true
		}
		return fmt.Sprintf("Closed fd %d", fd), true

	case "write":
		if len(parts) < 3 {
			return cli.Help(), true
		}
		fd, err := parseHandle(parts[1])
		if err != nil {
			return err.Error(), true
		}
		data, err := parseData(strings.Join(parts[2:], " "))
		if err != nil {
			return err.Error(), true
		}
		n, err := cli.driver.Write(fd, data)
		if err != nil {
			return fmt.Sprintf("Error writing fd %d after %d bytes: %v", fd, n, err), true
		}
		return fmt.Sprintf("Wrote %d bytes to fd %d", n, fd), true

	case "read":
		if len(parts) != 3 {
			return cli.Help(), true
		}
		fd, err := parseHandle(parts[1])
		if err != nil {
			return err.Error(), true
		}
		count, err := strconv.ParseUint(parts[2], 10, 32)
		if err != nil {
			return fmt.Sprintf("Invalid byte count %s: %v", parts[2], err), true
		}
		info, err := cli.driver.Stat(fd)
		if err != nil {
			return fmt.Sprintf("Error reading fd %d: %v", fd, err), true
		}
		buf := make([]byte, util.Min(count, uint64(info.Length-info.Position)))
		n, err := cli.driver.Read(fd, buf)
		if err != nil {
			return fmt.Sprintf("Error reading fd %d after %d bytes: %v", fd, n, err), true
		}
		return fmt.Sprintf("Read %d bytes: %q", n, buf[:n]), true

	case "seek":
		if len(parts) != 3 {
			return cli.Help(), true
		}
		fd, err := parseHandle(parts[1])
		if err != nil {
			return err.Error(), true
		}
		offset, err := strconv.ParseUint(parts[2], 10, 32)
		if err != nil {
			return fmt.Sprintf("Invalid offset %s: %v", parts[2], err), true
		}
		if err := cli.driver.Seek(fd, uint32(offset)); err != nil {
			return fmt.Sprintf("Error seeking fd %d: %v", fd, err), true
		}
		return fmt.Sprintf("fd %d at offset %d", fd, offset), true

	case "stat":
		if len(parts) != 2 {
			return cli.Help(), true
		}
		fd, err := parseHandle(parts[1])
		if err != nil {
			return err.Error(), true
		}
		info, err := cli.driver.Stat(fd)
		if err != nil {
			return fmt.Sprintf("Error on fd %d: %v", fd, err), true
		}
		return describe(info), true

	case "ls":
		files := cli.driver.Files()
		if len(files) == 0 {
			return "No files", true
		}
		lines := make([]string, 0, len(files))
		for _, info := range files {
			lines = append(lines, describe(info))
		}
		return strings.Join(lines, "\n"), true

	case "import":
		if len(parts) != 3 {
			return cli.Help(), true
		}
		n, err := cli.importFile(parts[1], parts[2])
		if err != nil {
			return fmt.Sprintf("Error importing %s after %d bytes: %v", parts[1], n, err), true
		}
		return fmt.Sprintf("Imported %d bytes from %s into %s", n, parts[1], parts[2]), true

	case "export":
		if len(parts) != 3 {
			return cli.Help(), true
		}
		n, err := cli.exportFile(parts[1], parts[2])
		if err != nil {
			return fmt.Sprintf("Error exporting %s after %d bytes: %v", parts[1], n, err), true
		}
		return fmt.Sprintf("Exported %d bytes from %s to %s", n, parts[1], parts[2]), true

	case "metrics":
		c := cli.driver.Cache()
		if c == nil || !c.Initialized() {
			return "Sector cache disabled", true
		}
		alloc := cli.driver.Allocator()
		return fmt.Sprintf("%s\nSectors allocated [%d, %d free]", c.Metrics(), alloc.Allocated(), alloc.Free()), true

	case "exit":
		if err := cli.Close(); err != nil {
			return fmt.Sprintf("Error closing disk: %v", err), false
		}
		return "Disk successfully closed", false

	default:
		return cli.Help(), true
	}
}

// importFile copies the local file at path into the file called name,
// starting at its current position.
func (cli *CLI) importFile(path string, name string) (int64, error) {
	src, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer src.Close()

	dst, err := fs3.OpenStream(cli.driver, name)
	if err != nil {
		return 0, err
	}
	return io.Copy(dst, src)
}

// exportFile copies the whole file called name to the local file at path.
func (cli *CLI) exportFile(name string, path string) (int64, error) {
	src, err := fs3.OpenStream(cli.driver, name)
	if err != nil {
		return 0, err
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return 0, err
	}

	dst, err := os.Create(path)
	if err != nil {
		return 0, err
	}
	n, err := io.Copy(dst, src)
	if cerr := dst.Close(); err == nil {
		err = cerr
	}
	return n, err
}

func (cli *CLI) Help() string {
	out := ""
	out += "Valid commands:\n"
	out += "\n"
	out += "\tmount\n"
	out += "\tunmount\n"
	out += "\n"
	out += "\topen <name>\n"
	out += "\tExample: open notes.txt\n"
	out += "\n"
	out += "\tclose <fd>\n"
	out += "\n"
	out += "\twrite <fd> <text>\n"
	out += "\tExample: write 0 hello world\n"
	out += "\tExample: write 0 0x4242\n"
	out += "\n"
	out += "\tread <fd> <count>\n"
	out += "\tExample: read 0 11\n"
	out += "\n"
	out += "\tseek <fd> <offset>\n"
	out += "\tstat <fd>\n"
	out += "\tls\n"
	out += "\n"
	out += "\timport <local path> <name>\n"
	out += "\texport <name> <local path>\n"
	out += "\n"
	out += "\tmetrics\n"
	out += "\texit\n"

	return out
}

func parseHandle(s string) (fs3.Handle, error) {
	fd, err := strconv.ParseInt(s, 10, 16)
	if err != nil {
		return -1, fmt.Errorf("invalid fd %s: %v", s, err)
	}
	return fs3.Handle(fd), nil
}

// parseData accepts plain text or hex with a leading 0x.
func parseData(s string) ([]byte, error) {
	if len(s) < 2 || s[0:2] != "0x" {
		return []byte(s), nil
	}

	data, err := hex.DecodeString(s[2:])
	if err != nil {
		return nil, fmt.Errorf("invalid hex-encoded string: %v", err)
	}
	return data, nil
}

func describe(info fs3.FileInfo) string {
	state := "closed"
	if info.Open {
		state = "open"
	}
	return fmt.Sprintf("fd %d\t%s\t%s\tpos %d\tlen %d\tsectors %d", info.Handle, info.Name, state, info.Position, info.Length, len(info.Sectors))
}
