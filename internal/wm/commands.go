package wm

import (
	"os/exec"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/tilde-wm/tilde/internal/navigation"
)

// Command is a named action bound to a key combination. Run performs
// one logical action against the manager and reports failure; failures
// are logged by the dispatcher and never stop the event loop.
type Command struct {
	Name string
	Run  func(*WindowManager) error
}

// NewCommand resolves a configured command name and its arguments into
// an executable Command. Directional commands take a direction argument
// ("up", "down", "left", "right") and an optional selection policy
// ("center" by default, or "line").
func NewCommand(name string, args []string) (Command, error) {
	simple := func(f func(*WindowManager)) Command {
		return Command{Name: name, Run: func(wm *WindowManager) error {
			f(wm)
			return nil
		}}
	}

	switch name {
	case "close-focused":
		return simple((*WindowManager).CloseFocused), nil
	case "rotate-focus-in-group":
		return simple((*WindowManager).RotateFocusInGroup), nil
	case "swap-with-next-in-group":
		return simple((*WindowManager).SwapWithNextInGroup), nil
	case "swap-with-previous-in-group":
		return simple((*WindowManager).SwapWithPreviousInGroup), nil
	case "next-group":
		return simple((*WindowManager).NextGroup), nil
	case "prev-group":
		return simple((*WindowManager).PrevGroup), nil
	case "move-focused-to-next-group":
		return simple((*WindowManager).MoveFocusedToNextGroup), nil
	case "move-focused-to-prev-group":
		return simple((*WindowManager).MoveFocusedToPrevGroup), nil
	case "rotate-output":
		return simple((*WindowManager).RotateOutput), nil
	case "cycle-layout":
		return simple((*WindowManager).CycleLayout), nil
	case "quit":
		return simple((*WindowManager).Quit), nil

	case "switch-group":
		if len(args) != 1 {
			return Command{}, errors.Errorf("switch-group takes a group name, got %d arguments", len(args))
		}
		target := args[0]
		return Command{Name: name, Run: func(wm *WindowManager) error {
			return wm.SwitchGroup(target)
		}}, nil

	case "move-focused-to-group":
		if len(args) != 1 {
			return Command{}, errors.Errorf("move-focused-to-group takes a group name, got %d arguments", len(args))
		}
		target := args[0]
		return Command{Name: name, Run: func(wm *WindowManager) error {
			wm.MoveFocusedToGroup(target)
			return nil
		}}, nil

	case "focus-in-direction", "swap-in-direction":
		dir, policy, err := parseDirectional(args)
		if err != nil {
			return Command{}, errors.Wrap(err, name)
		}
		if name == "focus-in-direction" {
			return Command{Name: name, Run: func(wm *WindowManager) error {
				wm.FocusInDirection(policy, dir)
				return nil
			}}, nil
		}
		return Command{Name: name, Run: func(wm *WindowManager) error {
			wm.SwapInDirection(policy, dir)
			return nil
		}}, nil

	case "spawn":
		if len(args) == 0 {
			return Command{}, errors.New("spawn needs a command line")
		}
		argv := append([]string(nil), args...)
		return Command{Name: name, Run: func(wm *WindowManager) error {
			return wm.spawn(argv)
		}}, nil
	}
	return Command{}, errors.Errorf("unknown command %q", name)
}

func parseDirectional(args []string) (navigation.Direction, navigation.Policy, error) {
	if len(args) < 1 || len(args) > 2 {
		return 0, nil, errors.New("expected a direction and an optional policy")
	}
	var dir navigation.Direction
	switch args[0] {
	case "up":
		dir = navigation.Up
	case "down":
		dir = navigation.Down
	case "left":
		dir = navigation.Left
	case "right":
		dir = navigation.Right
	default:
		return 0, nil, errors.Errorf("unknown direction %q", args[0])
	}
	var policy navigation.Policy = navigation.Center{}
	if len(args) == 2 {
		switch args[1] {
		case "center":
			policy = navigation.Center{}
		case "line":
			policy = navigation.Line{}
		default:
			return 0, nil, errors.Errorf("unknown policy %q", args[1])
		}
	}
	return dir, policy, nil
}

// spawn starts an external process and tracks it for reaping.
func (wm *WindowManager) spawn(argv []string) error {
	log.WithField("argv", argv).Info("spawning")
	cmd := exec.Command(argv[0], argv[1:]...)
	if err := cmd.Start(); err != nil {
		return errors.Wrapf(err, "could not spawn %v", argv)
	}
	wm.children = append(wm.children, cmd)
	return nil
}

// reapChildren polls every tracked child once, without blocking.
// Children that exited are logged and dropped; a wait error keeps the
// child around for a later retry.
func (wm *WindowManager) reapChildren() {
	kept := wm.children[:0]
	for _, child := range wm.children {
		var status unix.WaitStatus
		pid, err := unix.Wait4(child.Process.Pid, &status, unix.WNOHANG, nil)
		switch {
		case err != nil:
			log.WithField("pid", child.Process.Pid).WithError(err).Warn("could not wait on child")
			kept = append(kept, child)
		case pid == 0:
			kept = append(kept, child)
		default:
			log.WithFields(log.Fields{"pid": pid, "status": status.ExitStatus()}).Info("reaped child process")
		}
	}
	wm.children = kept
}
