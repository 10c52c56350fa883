package main

import (
	"flag"
	"log"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/zintix-labs/resamplab"
	"github.com/zintix-labs/resamplab/sdk/perf"
	"github.com/zintix-labs/resamplab/server/logger"
	"github.com/zintix-labs/resamplab/spec"
	"github.com/zintix-labs/resamplab/stats"
)

var cfg *config = new(config)

type config struct {
	file      string
	algorithm string
	fraction  string
	prng      string
	particles int
	trials    int
	worker    int
	seed      int64
	single    bool
	out       string
	trace     string
	logMode   string
	pprofmode string
	pprofdir  string
}

func bindVar() {
	// 綁定 Flag 到本地變數的指標 (&)
	flag.StringVar(&cfg.file, "cfg", "", "run setting file (.yaml/.yml/.json)")
	flag.StringVar(&cfg.algorithm, "algorithm", "", "resampler: multinomial|systematic|stratified|residual")
	flag.StringVar(&cfg.fraction, "fraction", "", "resampler for the residual fraction")
	flag.StringVar(&cfg.prng, "prng", "", "prng factory name")
	flag.IntVar(&cfg.particles, "particles", 0, "number of particles")
	flag.IntVar(&cfg.trials, "trials", 0, "number of generations")
	flag.IntVar(&cfg.worker, "worker", 0, "number of workers")
	flag.Int64Var(&cfg.seed, "seed", 0, "int64 seed for random number generator (<= 0: crypto/rand)")
	flag.BoolVar(&cfg.single, "single", false, "run on a single worker")
	flag.StringVar(&cfg.out, "out", "", "report format on stdout: json|yaml|csv (default: table)")
	flag.StringVar(&cfg.trace, "trace", "", "write every generation to this zstd file")
	flag.StringVar(&cfg.logMode, "log-mode", "dev", "log mode: dev|prod|silence")
	flag.StringVar(&cfg.pprofmode, "p", "", "pprof: '', cpu, heap, allocs, mutex")
	flag.StringVar(&cfg.pprofdir, "pdir", perf.DefaultDir, "pprof output directory")

	flag.Parse()
}

// load 讀取設定檔，並以命令列有給的旗標覆蓋
func (cfg *config) load() (*spec.RunSetting, error) {
	rs := new(spec.RunSetting)
	if cfg.file != "" {
		var err error
		rs, err = spec.LoadRunSetting(os.DirFS(filepath.Dir(cfg.file)), filepath.Base(cfg.file))
		if err != nil {
			return nil, err
		}
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "algorithm":
			rs.Algorithm = cfg.algorithm
		case "fraction":
			rs.Fraction = cfg.fraction
		case "prng":
			rs.PRNG = cfg.prng
		case "particles":
			rs.Particles = cfg.particles
		case "trials":
			rs.Trials = cfg.trials
		case "worker":
			rs.Workers = cfg.worker
		case "seed":
			rs.Seed = cfg.seed
		case "trace":
			rs.Trace.Path = cfg.trace
		}
	})
	if rs.Name == "" {
		rs.Name = "run"
	}
	if err := rs.Init(); err != nil {
		return nil, err
	}
	return rs, nil
}

// 這裡解析並執行模擬器
func executeSimulator() {
	mode, err := logger.ParseLogMode(cfg.logMode)
	if err != nil {
		log.Fatal(err)
	}
	rs, err := cfg.load()
	if err != nil {
		log.Fatal(err)
	}
	var render stats.ReportRender
	if cfg.out != "" {
		r, ok := stats.RenderByName(cfg.out)
		if !ok {
			log.Fatal("unknown output format: " + cfg.out)
		}
		render = r
	}

	lab, err := resamplab.NewDefault()
	if err != nil {
		log.Fatal(err)
	}
	lab.SetLogger(logger.New(mode))
	s, err := lab.NewSimulator(rs)
	if err != nil {
		log.Fatal(err)
	}
	if rs.Trace.Path != "" {
		f, err := os.Create(rs.Trace.Path)
		if err != nil {
			log.Fatal(err)
		}
		defer f.Close()
		if err := s.SetTrace(f); err != nil {
			log.Fatal(err)
		}
	}
	// 至此確保可執行
	green := "\033[1;32m"
	reset := "\033[0m"
	p := message.NewPrinter(language.English)
	// 結構化輸出時 stdout 只留報表
	showpb := render == nil

	var (
		st *stats.Report
		ut time.Duration
	)
	if cfg.single { // 單線程
		if showpb {
			p.Printf("%s[RUN:%s] [ALGO:%s] [PARTICLES:%d] [GENERATIONS:%d] [SEED:%d]%s\n", green, rs.Name, rs.Algorithm, s.Weights().Len(), rs.Trials, s.Seed(), reset)
		}
		st, ut, err = s.Sim(showpb)
	} else {
		if showpb {
			p.Printf("%s[WORKERS:%d] [RUN:%s] [ALGO:%s] [PARTICLES:%d] [GENERATIONS:%d] [SEED:%d]%s\n", green, rs.Workers, rs.Name, rs.Algorithm, s.Weights().Len(), rs.Trials, s.Seed(), reset)
		}
		st, ut, err = s.SimMP(showpb) // 併發
	}
	if err != nil {
		log.Fatal(err)
	}
	if render == nil {
		st.StdOut(ut)
		return
	}
	if err := st.WriteWith(os.Stdout, render); err != nil {
		log.Fatal(err)
	}
}
