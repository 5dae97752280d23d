package main

import (
	"fmt"
	"log"
	"os"
)

const usage = `usage:
  depixel train   -config run.yaml [-epochs N] [-batch-size N] [-seed S] [-device cpu|accelerator] [-checkpoint P] [-plot P] [-progress]
  depixel evaluate -arch depix|simple -model P -data R1,R2 [-batch-size N] [-dump-dir D -dump N] [-image-size N]
  depixel predict -arch depix|simple -model P -testset P -out P [-dump-dir D -dump N] [-image-size N]
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "train":
		err = runTrain(os.Args[2:])
	case "evaluate":
		err = runEvaluate(os.Args[2:])
	case "predict":
		err = runPredict(os.Args[2:])
	case "-h", "-help", "--help", "help":
		fmt.Fprint(os.Stdout, usage)
		return
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n%s", os.Args[1], usage)
		os.Exit(2)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", os.Args[1], err)
	}
}
